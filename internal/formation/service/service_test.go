package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/formationdesk/internal/apperr"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/internal/formation/repository"
	"github.com/smallbiznis/formationdesk/internal/storetest"
	"github.com/smallbiznis/formationdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn := storetest.Open(t)
	svc := New(Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		GenID: storetest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.NewRepository(conn),
	})
	return svc.(*Service)
}

func createFormation(t *testing.T, svc *Service, name string) *domain.FormationResponse {
	t.Helper()
	f, err := svc.CreateFormation(context.Background(), domain.CreateFormationRequest{Name: name, Duration: 30})
	require.NoError(t, err)
	return f
}

func intOf(v int) *int { return &v }

func guide(contentID string, order *int) domain.ModuleInput {
	return domain.ModuleInput{
		ContentID: contentID,
		Title:     contentID,
		Type:      domain.ModuleTypeGuide,
		Order:     order,
		Steps: []domain.StepInput{
			{StepID: contentID + "-1", Title: "Open panel", ValidationEvent: "panel_opened"},
			{StepID: contentID + "-2", Title: "Press start", ValidationEvent: "start_pressed"},
		},
	}
}

func contentIDs(modules []domain.ModuleResponse) []string {
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.ContentID)
	}
	return out
}

func orders(modules []domain.ModuleResponse) []int {
	out := make([]int, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.Order)
	}
	return out
}

func TestCreateFormationDefaultsPortableID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	f := createFormation(t, svc, "Fire Safety Basics")
	assert.Equal(t, "fire-safety-basics", f.FormationID)
	assert.Equal(t, 0, f.ModuleCount)
	assert.Nil(t, f.BuildID)
	assert.Equal(t, map[string]any{}, f.ObjectMapping)

	_, err := svc.CreateFormation(ctx, domain.CreateFormationRequest{Name: "Fire Safety Basics"})
	assert.ErrorIs(t, err, domain.ErrDuplicateFormationID)

	_, err = svc.CreateFormation(ctx, domain.CreateFormationRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateFormation(ctx, domain.CreateFormationRequest{Name: "Negative", Duration: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
}

func TestUpdateFormationPatchesGivenFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	f := createFormation(t, svc, "Forklift")

	name := "Forklift Operation"
	mapping := map[string]any{"lever": "Lever_01"}
	updated, err := svc.UpdateFormation(ctx, f.ID, domain.UpdateFormationRequest{Name: &name, ObjectMapping: &mapping})
	require.NoError(t, err)

	assert.Equal(t, "Forklift Operation", updated.Name)
	assert.Equal(t, "forklift", updated.FormationID)
	assert.Equal(t, 30, updated.Duration)
	assert.Equal(t, "Lever_01", updated.ObjectMapping["lever"])

	_, err = svc.UpdateFormation(ctx, "123", domain.UpdateFormationRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrFormationNotFound)
	_, err = svc.UpdateFormation(ctx, "abc", domain.UpdateFormationRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidFormation)
}

func TestListFormationsPages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"One", "Two", "Three"} {
		createFormation(t, svc, name)
	}

	first, err := svc.ListFormations(ctx, domain.ListFormationsRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Formations, 2)
	assert.True(t, first.PageInfo.HasMore)
	require.NotEmpty(t, first.PageInfo.NextPageToken)

	second, err := svc.ListFormations(ctx, domain.ListFormationsRequest{Pagination: pagination.Pagination{
		PageSize:  2,
		PageToken: first.PageInfo.NextPageToken,
	}})
	require.NoError(t, err)
	require.Len(t, second.Formations, 1)
	assert.False(t, second.PageInfo.HasMore)
	assert.Equal(t, "three", second.Formations[0].FormationID)

	_, err = svc.ListFormations(ctx, domain.ListFormationsRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestModuleOrderingScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	f := createFormation(t, svc, "Safety Induction")

	_, err := svc.CreateModule(ctx, f.ID, guide("intro", nil))
	require.NoError(t, err)
	safety, err := svc.CreateModule(ctx, f.ID, domain.ModuleInput{
		ContentID: "safety",
		Title:     "Safety",
		Type:      domain.ModuleTypeEducational,
		Educational: &domain.EducationalInput{
			Title:   "Protective equipment",
			Content: json.RawMessage(`{ "paragraphs": ["Wear a helmet"] }`),
		},
	})
	require.NoError(t, err)
	quiz, err := svc.CreateModule(ctx, f.ID, domain.ModuleInput{
		ContentID: "quiz",
		Title:     "Quiz",
		Type:      domain.ModuleTypeQuiz,
		Questions: []domain.QuestionInput{{
			QuestionID: "q1",
			Text:       "What do you wear?",
			Type:       domain.QuestionTypeSingle,
			Options: []domain.OptionInput{
				{OptionID: "a", Text: "Helmet", IsCorrect: true},
				{OptionID: "b", Text: "Sandals"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, safety.Order)
	require.NotNil(t, safety.Educational)
	assert.JSONEq(t, `{"paragraphs":["Wear a helmet"]}`, string(safety.Educational.Content))
	assert.Equal(t, 3, quiz.Order)
	require.Len(t, quiz.Questions, 1)
	assert.Len(t, quiz.Questions[0].Options, 2)

	modules, err := svc.ReorderModule(ctx, f.ID, quiz.ID, domain.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "quiz", "safety"}, contentIDs(modules))
	assert.Equal(t, []int{1, 2, 3}, orders(modules))

	_, err = svc.ReorderModule(ctx, f.ID, modules[0].ID, domain.DirectionUp)
	assert.ErrorIs(t, err, domain.ErrBoundaryViolation)
	_, err = svc.ReorderModule(ctx, f.ID, modules[2].ID, domain.DirectionDown)
	assert.ErrorIs(t, err, domain.ErrBoundaryViolation)
	_, err = svc.ReorderModule(ctx, f.ID, modules[1].ID, "sideways")
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)

	modules, err = svc.ListModules(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "quiz", "safety"}, contentIDs(modules))

	got, err := svc.GetFormation(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ModuleCount)
}

// safetyInduction creates the Intro, Safety, Quiz formation and returns the
// module ids keyed by content id.
func safetyInduction(t *testing.T, svc *Service) (string, map[string]string) {
	t.Helper()
	f := createFormation(t, svc, "Safety Induction")
	ids := map[string]string{}
	for _, contentID := range []string{"intro", "safety", "quiz"} {
		m, err := svc.CreateModule(context.Background(), f.ID, domain.ModuleInput{
			ContentID: contentID,
			Title:     contentID,
			Type:      domain.ModuleTypeOther,
		})
		require.NoError(t, err)
		ids[contentID] = m.ID
	}
	return f.ID, ids
}

func TestReorderModule(t *testing.T) {
	type move struct {
		contentID string
		direction domain.Direction
	}
	cases := []struct {
		name    string
		moves   []move
		wantErr error
		want    []string
	}{
		{
			name:  "safety up",
			moves: []move{{"safety", domain.DirectionUp}},
			want:  []string{"safety", "intro", "quiz"},
		},
		{
			name:    "safety up twice hits the top",
			moves:   []move{{"safety", domain.DirectionUp}, {"safety", domain.DirectionUp}},
			wantErr: domain.ErrBoundaryViolation,
			want:    []string{"safety", "intro", "quiz"},
		},
		{
			name:  "intro down",
			moves: []move{{"intro", domain.DirectionDown}},
			want:  []string{"safety", "intro", "quiz"},
		},
		{
			name:  "quiz up then down",
			moves: []move{{"quiz", domain.DirectionUp}, {"quiz", domain.DirectionDown}},
			want:  []string{"intro", "safety", "quiz"},
		},
		{
			name:    "last module down",
			moves:   []move{{"quiz", domain.DirectionDown}},
			wantErr: domain.ErrBoundaryViolation,
			want:    []string{"intro", "safety", "quiz"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t)
			ctx := context.Background()
			formationID, ids := safetyInduction(t, svc)

			var err error
			for _, m := range tc.moves {
				_, err = svc.ReorderModule(ctx, formationID, ids[m.contentID], m.direction)
			}
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			modules, err := svc.ListModules(ctx, formationID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, contentIDs(modules))
			assert.Equal(t, []int{1, 2, 3}, orders(modules))
		})
	}
}

func TestReorderModuleRollsBackOnWriteFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	formationID, ids := safetyInduction(t, svc)

	errWrite := errors.New("write failed")
	armed, writes := false, 0
	require.NoError(t, svc.db.Callback().Raw().Before("gorm:raw").Register("test:fail_third_write", func(tx *gorm.DB) {
		if !armed {
			return
		}
		writes++
		if writes == 3 {
			tx.AddError(errWrite)
		}
	}))

	armed = true
	_, err := svc.ReorderModule(ctx, formationID, ids["safety"], domain.DirectionUp)
	armed = false

	require.Error(t, err)
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, apperr.KindUpstreamFailure, apperr.KindOf(err))
	assert.Equal(t, 3, writes)

	modules, err := svc.ListModules(ctx, formationID)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "safety", "quiz"}, contentIDs(modules))
	assert.Equal(t, []int{1, 2, 3}, orders(modules))
}

func TestCreateModuleAtOrderShiftsSiblings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	f := createFormation(t, svc, "Crane")

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.CreateModule(ctx, f.ID, guide(id, nil))
		require.NoError(t, err)
	}

	inserted, err := svc.CreateModule(ctx, f.ID, guide("first", intOf(1)))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted.Order)

	modules, err := svc.ListModules(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "a", "b", "c"}, contentIDs(modules))
	assert.Equal(t, []int{1, 2, 3, 4}, orders(modules))

	appended, err := svc.CreateModule(ctx, f.ID, guide("last", intOf(5)))
	require.NoError(t, err)
	assert.Equal(t, 5, appended.Order)

	_, err = svc.CreateModule(ctx, f.ID, guide("gap", intOf(7)))
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	_, err = svc.CreateModule(ctx, f.ID, guide("zero", intOf(0)))
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	_, err = svc.CreateModule(ctx, f.ID, guide("a", nil))
	assert.ErrorIs(t, err, domain.ErrDuplicateContentID)
}

func TestDeleteModuleCompactsOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	f := createFormation(t, svc, "Welding")

	var ids []string
	for _, id := range []string{"a", "b", "c", "d"} {
		m, err := svc.CreateModule(ctx, f.ID, guide(id, nil))
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	require.NoError(t, svc.DeleteModule(ctx, f.ID, ids[1]))

	modules, err := svc.ListModules(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, contentIDs(modules))
	assert.Equal(t, []int{1, 2, 3}, orders(modules))

	_, err = svc.GetModule(ctx, f.ID, ids[1])
	assert.ErrorIs(t, err, domain.ErrModuleNotFound)
}

func TestModuleMustBelongToFormation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	one := createFormation(t, svc, "One")
	two := createFormation(t, svc, "Two")

	m, err := svc.CreateModule(ctx, one.ID, guide("intro", nil))
	require.NoError(t, err)

	_, err = svc.GetModule(ctx, two.ID, m.ID)
	assert.ErrorIs(t, err, domain.ErrModuleNotInFormation)
	_, err = svc.ReorderModule(ctx, two.ID, m.ID, domain.DirectionDown)
	assert.ErrorIs(t, err, domain.ErrModuleNotInFormation)
	assert.ErrorIs(t, svc.DeleteModule(ctx, two.ID, m.ID), domain.ErrModuleNotInFormation)
}

func TestUpdateModuleTypeChangeDropsSteps(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	f := createFormation(t, svc, "Ladder")

	m, err := svc.CreateModule(ctx, f.ID, guide("climb", nil))
	require.NoError(t, err)
	require.Len(t, m.Steps, 2)

	title := "Climbing"
	steps := []domain.StepInput{{StepID: "only", ValidationEvent: "grip"}}
	m, err = svc.UpdateModule(ctx, f.ID, m.ID, domain.UpdateModuleRequest{Title: &title, Steps: &steps})
	require.NoError(t, err)
	assert.Equal(t, "Climbing", m.Title)
	require.Len(t, m.Steps, 1)
	assert.Equal(t, "only", m.Steps[0].StepID)

	other := domain.ModuleTypeOther
	m, err = svc.UpdateModule(ctx, f.ID, m.ID, domain.UpdateModuleRequest{Type: &other})
	require.NoError(t, err)
	assert.Equal(t, domain.ModuleTypeOther, m.Type)
	assert.Empty(t, m.Steps)

	questions := []domain.QuestionInput{{QuestionID: "q", Text: "?", Type: domain.QuestionTypeSingle, Options: []domain.OptionInput{{OptionID: "a", IsCorrect: true}}}}
	_, err = svc.UpdateModule(ctx, f.ID, m.ID, domain.UpdateModuleRequest{Questions: &questions})
	assert.ErrorIs(t, err, domain.ErrInvalidModuleBody)
}

func TestDeleteFormationRemovesTree(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	f := createFormation(t, svc, "Scaffold")

	_, err := svc.CreateModule(ctx, f.ID, guide("intro", nil))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFormation(ctx, f.ID))

	_, err = svc.GetFormation(ctx, f.ID)
	assert.ErrorIs(t, err, domain.ErrFormationNotFound)
	assert.ErrorIs(t, svc.DeleteFormation(ctx, f.ID), domain.ErrFormationNotFound)

	var steps int64
	require.NoError(t, svc.db.Model(&domain.FormationStep{}).Count(&steps).Error)
	assert.Zero(t, steps)
}
