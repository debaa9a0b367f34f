package domain

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleInputValidate(t *testing.T) {
	base := ModuleInput{ContentID: "intro", Title: "Intro", Type: ModuleTypeGuide}

	cases := []struct {
		name   string
		mutate func(*ModuleInput)
		want   error
	}{
		{name: "ok", mutate: func(*ModuleInput) {}},
		{name: "missing content id", mutate: func(in *ModuleInput) { in.ContentID = " " }, want: ErrInvalidContentID},
		{name: "bad type", mutate: func(in *ModuleInput) { in.Type = "video" }, want: ErrInvalidModuleType},
		{name: "questions on guide", mutate: func(in *ModuleInput) {
			in.Questions = []QuestionInput{{QuestionID: "q1", Text: "?", Type: QuestionTypeSingle, Options: []OptionInput{{OptionID: "a", IsCorrect: true}}}}
		}, want: ErrInvalidModuleBody},
		{name: "steps on quiz", mutate: func(in *ModuleInput) {
			in.Type = ModuleTypeQuiz
			in.Steps = []StepInput{{StepID: "s1"}}
		}, want: ErrInvalidModuleBody},
		{name: "invalid educational", mutate: func(in *ModuleInput) {
			in.Educational = &EducationalInput{Title: "t", Content: json.RawMessage(`{"a":`)}
		}, want: ErrInvalidEducational},
		{name: "step without id", mutate: func(in *ModuleInput) { in.Steps = []StepInput{{Title: "x"}} }, want: ErrInvalidStep},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			err := in.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateQuestionsCorrectOptions(t *testing.T) {
	none := []QuestionInput{{QuestionID: "q1", Text: "?", Type: QuestionTypeMultiple, Options: []OptionInput{{OptionID: "a"}, {OptionID: "b"}}}}
	assert.ErrorIs(t, ValidateQuestions(none), ErrInvalidQuestionOptions)

	twoSingle := []QuestionInput{{QuestionID: "q1", Text: "?", Type: QuestionTypeSingle, Options: []OptionInput{{OptionID: "a", IsCorrect: true}, {OptionID: "b", IsCorrect: true}}}}
	assert.ErrorIs(t, ValidateQuestions(twoSingle), ErrInvalidQuestionOptions)

	twoMultiple := []QuestionInput{{QuestionID: "q1", Text: "?", Type: QuestionTypeMultiple, Options: []OptionInput{{OptionID: "a", IsCorrect: true}, {OptionID: "b", IsCorrect: true}}}}
	assert.NoError(t, ValidateQuestions(twoMultiple))

	badType := []QuestionInput{{QuestionID: "q1", Text: "?", Type: "OPEN", Options: []OptionInput{{OptionID: "a", IsCorrect: true}}}}
	assert.ErrorIs(t, ValidateQuestions(badType), ErrInvalidQuestionType)
}

func TestBuildAssignsBodyByType(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	in := ModuleInput{
		ContentID: "safety",
		Title:     "Safety",
		Type:      ModuleTypeGuide,
		Educational: &EducationalInput{
			Title:   "Read first",
			Content: json.RawMessage(`{ "blocks": [ {"type": "p", "text": "hi"} ] }`),
		},
		Steps: []StepInput{
			{StepID: "s1", ValidationEvent: "grab"},
			{StepID: "s2", ValidationEvent: "release"},
		},
	}
	require.NoError(t, in.Validate())

	m, err := in.Build(node, node.Generate(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Content.Order)
	assert.Equal(t, `{"blocks":[{"type":"p","text":"hi"}]}`, m.Content.EducationalText)

	guide, ok := m.Body.(GuideBody)
	require.True(t, ok)
	require.Len(t, guide.Steps, 2)
	assert.Equal(t, 0, guide.Steps[0].Position)
	assert.Equal(t, "release", guide.Steps[1].ValidationEvent)
	assert.Equal(t, m.Content.ID, guide.Steps[1].ModuleID)
	assert.Nil(t, m.Questions())

	edu, ok := m.Educational()
	require.True(t, ok)
	assert.Equal(t, "Read first", edu.Title)
}

func TestAssembleBody(t *testing.T) {
	content := FormationContent{Type: ModuleTypeEducational, EducationalTitle: "t", EducationalText: `{"a":1}`}
	body := AssembleBody(content, nil, nil)
	edu, ok := body.(EducationalBody)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(edu.Content))

	assert.IsType(t, OtherBody{}, AssembleBody(FormationContent{Type: ModuleTypeOther}, nil, nil))
}
