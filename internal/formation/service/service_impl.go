package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/internal/observability/metrics"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"github.com/smallbiznis/formationdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("formation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateFormation(ctx context.Context, req domain.CreateFormationRequest) (*domain.FormationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Duration < 0 {
		return nil, domain.ErrInvalidDuration
	}

	portableID := strings.TrimSpace(req.FormationID)
	if portableID == "" {
		portableID = slug.Make(name)
	}
	if portableID == "" {
		return nil, domain.ErrInvalidPortableID
	}

	exists, err := s.repo.FormationIDExists(ctx, portableID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if exists {
		return nil, domain.ErrDuplicateFormationID
	}

	now := s.clock.Now()
	formation := domain.Formation{
		ID:            s.genID.Generate(),
		FormationID:   portableID,
		Name:          name,
		Description:   req.Description,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
		Duration:      req.Duration,
		ImageURL:      req.ImageURL,
		ObjectMapping: datatypes.JSONMap(req.ObjectMapping),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateFormation(ctx, &formation); err != nil {
		return nil, db.Classify(err, domain.ErrDuplicateFormationID)
	}

	resp := domain.ToFormationResponse(formation, 0)
	return &resp, nil
}

func (s *Service) GetFormation(ctx context.Context, id string) (*domain.FormationResponse, error) {
	formationID, err := parseID(id, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}

	formation, err := s.mustFormation(ctx, s.repo, formationID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountContents(ctx, formation.ID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := domain.ToFormationResponse(*formation, count)
	return &resp, nil
}

func (s *Service) ListFormations(ctx context.Context, req domain.ListFormationsRequest) (*domain.ListFormationsResponse, error) {
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}

	var afterID snowflake.ID
	if cursor != nil {
		afterID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
	}

	limit := req.Limit()
	items, err := s.repo.ListFormations(ctx, afterID, limit+1)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	items, pageInfo := pagination.Trim(items, limit, func(f domain.Formation) string {
		return f.ID.String()
	})

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	counts, err := s.repo.CountContentsByFormation(ctx, ids)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := &domain.ListFormationsResponse{
		Formations: make([]domain.FormationResponse, 0, len(items)),
		PageInfo:   pageInfo,
	}
	for _, item := range items {
		resp.Formations = append(resp.Formations, domain.ToFormationResponse(item, counts[item.ID]))
	}
	return resp, nil
}

func (s *Service) UpdateFormation(ctx context.Context, id string, req domain.UpdateFormationRequest) (*domain.FormationResponse, error) {
	formationID, err := parseID(id, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}

	formation, err := s.mustFormation(ctx, s.repo, formationID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		formation.Name = name
	}
	if req.Duration != nil {
		if *req.Duration < 0 {
			return nil, domain.ErrInvalidDuration
		}
		formation.Duration = *req.Duration
	}
	if req.Description != nil {
		formation.Description = *req.Description
	}
	if req.Category != nil {
		formation.Category = *req.Category
	}
	if req.Difficulty != nil {
		formation.Difficulty = *req.Difficulty
	}
	if req.ImageURL != nil {
		formation.ImageURL = *req.ImageURL
	}
	if req.ObjectMapping != nil {
		formation.ObjectMapping = datatypes.JSONMap(*req.ObjectMapping)
	}
	formation.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateFormation(ctx, formation); err != nil {
		return nil, db.Classify(err, nil)
	}

	count, err := s.repo.CountContents(ctx, formation.ID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := domain.ToFormationResponse(*formation, count)
	return &resp, nil
}

func (s *Service) DeleteFormation(ctx context.Context, id string) error {
	formationID, err := parseID(id, domain.ErrInvalidFormation)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.mustFormation(ctx, repo, formationID); err != nil {
			return err
		}
		return repo.DeleteFormation(ctx, formationID)
	})
	if err != nil {
		return db.Classify(err, nil)
	}

	s.log.Info("formation deleted", zap.String("formation_id", formationID.String()))
	return nil
}

func (s *Service) mustFormation(ctx context.Context, repo domain.Repository, id snowflake.ID) (*domain.Formation, error) {
	formation, err := repo.GetFormation(ctx, id)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if formation == nil {
		return nil, domain.ErrFormationNotFound
	}
	return formation, nil
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
