package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateModule appends the module, or inserts it at the requested order and
// shifts the later siblings down.
func (s *Service) CreateModule(ctx context.Context, formationID string, req domain.ModuleInput) (*domain.ModuleResponse, error) {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var module domain.Module
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.mustFormation(ctx, repo, fid); err != nil {
			return err
		}

		exists, err := repo.ContentIDExists(ctx, fid, strings.TrimSpace(req.ContentID))
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateContentID
		}

		count, err := repo.CountContents(ctx, fid)
		if err != nil {
			return err
		}

		order := count + 1
		if req.Order != nil {
			order = *req.Order
			if order < 1 || order > count+1 {
				return domain.ErrInvalidOrder
			}
		}
		if order <= count {
			if err := repo.ShiftOrders(ctx, fid, order, 1); err != nil {
				return err
			}
		}

		module, err = req.Build(s.genID, fid, order)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		module.Content.CreatedAt = now
		module.Content.UpdatedAt = now

		return repo.CreateModule(ctx, module)
	})
	if err != nil {
		return nil, db.Classify(err, domain.ErrDuplicateContentID)
	}

	resp := domain.ToModuleResponse(module)
	return &resp, nil
}

func (s *Service) GetModule(ctx context.Context, formationID, moduleID string) (*domain.ModuleResponse, error) {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	mid, err := parseID(moduleID, domain.ErrInvalidModule)
	if err != nil {
		return nil, err
	}

	content, err := s.moduleInFormation(ctx, s.repo, fid, mid)
	if err != nil {
		return nil, err
	}

	modules, err := LoadModules(ctx, s.repo, []domain.FormationContent{*content})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := domain.ToModuleResponse(modules[0])
	return &resp, nil
}

func (s *Service) ListModules(ctx context.Context, formationID string) ([]domain.ModuleResponse, error) {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	if _, err := s.mustFormation(ctx, s.repo, fid); err != nil {
		return nil, err
	}
	return s.listModules(ctx, fid)
}

func (s *Service) listModules(ctx context.Context, fid snowflake.ID) ([]domain.ModuleResponse, error) {
	contents, err := s.repo.ListContents(ctx, fid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	modules, err := LoadModules(ctx, s.repo, contents)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := make([]domain.ModuleResponse, 0, len(modules))
	for _, m := range modules {
		resp = append(resp, domain.ToModuleResponse(m))
	}
	return resp, nil
}

// UpdateModule patches the module row. A type change drops the child
// collection that no longer applies.
func (s *Service) UpdateModule(ctx context.Context, formationID, moduleID string, req domain.UpdateModuleRequest) (*domain.ModuleResponse, error) {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	mid, err := parseID(moduleID, domain.ErrInvalidModule)
	if err != nil {
		return nil, err
	}

	var updated domain.FormationContent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		content, err := s.moduleInFormation(ctx, repo, fid, mid)
		if err != nil {
			return err
		}

		if err := applyModuleUpdate(content, req); err != nil {
			return err
		}
		content.UpdatedAt = s.clock.Now()

		if err := repo.UpdateContent(ctx, content); err != nil {
			return err
		}

		switch {
		case content.Type != domain.ModuleTypeGuide:
			err = repo.ReplaceSteps(ctx, content.ID, nil)
		case req.Steps != nil:
			err = repo.ReplaceSteps(ctx, content.ID, domain.BuildSteps(s.genID, content.ID, *req.Steps))
		}
		if err != nil {
			return err
		}

		switch {
		case content.Type != domain.ModuleTypeQuiz:
			err = repo.ReplaceQuestions(ctx, content.ID, nil)
		case req.Questions != nil:
			err = repo.ReplaceQuestions(ctx, content.ID, domain.BuildQuestions(s.genID, content.ID, *req.Questions))
		}
		if err != nil {
			return err
		}

		updated = *content
		return nil
	})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	modules, err := LoadModules(ctx, s.repo, []domain.FormationContent{updated})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := domain.ToModuleResponse(modules[0])
	return &resp, nil
}

func applyModuleUpdate(content *domain.FormationContent, req domain.UpdateModuleRequest) error {
	if req.Type != nil {
		if !req.Type.Valid() {
			return domain.ErrInvalidModuleType
		}
		content.Type = *req.Type
	}
	if req.Steps != nil && len(*req.Steps) > 0 && content.Type != domain.ModuleTypeGuide {
		return domain.ErrInvalidModuleBody
	}
	if req.Questions != nil && len(*req.Questions) > 0 && content.Type != domain.ModuleTypeQuiz {
		return domain.ErrInvalidModuleBody
	}
	if req.Steps != nil {
		for _, step := range *req.Steps {
			if strings.TrimSpace(step.StepID) == "" {
				return domain.ErrInvalidStep
			}
		}
	}
	if req.Questions != nil {
		if err := domain.ValidateQuestions(*req.Questions); err != nil {
			return err
		}
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.ErrInvalidTitle
		}
		content.Title = title
	}
	if req.Description != nil {
		content.Description = *req.Description
	}
	if req.ImageURL != nil {
		content.ImageURL = *req.ImageURL
	}
	if req.Educational != nil {
		text, err := domain.EncodeEducational(req.Educational)
		if err != nil {
			return err
		}
		content.EducationalTitle = req.Educational.Title
		content.EducationalText = text
	}
	return nil
}

// DeleteModule removes the module subtree and closes the gap it leaves.
func (s *Service) DeleteModule(ctx context.Context, formationID, moduleID string) error {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return err
	}
	mid, err := parseID(moduleID, domain.ErrInvalidModule)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		content, err := s.moduleInFormation(ctx, repo, fid, mid)
		if err != nil {
			return err
		}
		if err := repo.DeleteContent(ctx, content.ID); err != nil {
			return err
		}
		return repo.ShiftOrders(ctx, fid, content.Order+1, -1)
	})
	if err != nil {
		return db.Classify(err, nil)
	}

	s.log.Info("module deleted",
		zap.String("formation_id", fid.String()),
		zap.String("module_id", mid.String()),
	)
	return nil
}

func (s *Service) moduleInFormation(ctx context.Context, repo domain.Repository, fid, mid snowflake.ID) (*domain.FormationContent, error) {
	content, err := repo.GetContent(ctx, mid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if content == nil {
		return nil, domain.ErrModuleNotFound
	}
	if content.FormationID != fid {
		return nil, domain.ErrModuleNotInFormation
	}
	return content, nil
}

// LoadModules attaches the typed body to each module row, keeping the input order.
func LoadModules(ctx context.Context, repo domain.Repository, contents []domain.FormationContent) ([]domain.Module, error) {
	var guideIDs, quizIDs []snowflake.ID
	for _, c := range contents {
		switch c.Type {
		case domain.ModuleTypeGuide:
			guideIDs = append(guideIDs, c.ID)
		case domain.ModuleTypeQuiz:
			quizIDs = append(quizIDs, c.ID)
		}
	}

	steps, err := repo.ListSteps(ctx, guideIDs)
	if err != nil {
		return nil, err
	}
	questions, err := repo.ListQuestions(ctx, quizIDs)
	if err != nil {
		return nil, err
	}

	stepsByModule := make(map[snowflake.ID][]domain.FormationStep)
	for _, step := range steps {
		stepsByModule[step.ModuleID] = append(stepsByModule[step.ModuleID], step)
	}
	questionsByModule := make(map[snowflake.ID][]domain.QuizQuestion)
	for _, q := range questions {
		questionsByModule[q.Question.ModuleID] = append(questionsByModule[q.Question.ModuleID], q)
	}

	out := make([]domain.Module, 0, len(contents))
	for _, c := range contents {
		out = append(out, domain.Module{
			Content: c,
			Body:    domain.AssembleBody(c, stepsByModule[c.ID], questionsByModule[c.ID]),
		})
	}
	return out, nil
}
