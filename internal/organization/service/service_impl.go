package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

// Create stores the organization and makes the creator its OWNER in one transaction.
func (s *Service) Create(ctx context.Context, actorID string, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	container := strings.TrimSpace(req.StorageContainer)
	if strings.Contains(container, builddomain.Separator) {
		return nil, domain.ErrInvalidContainer
	}

	now := s.clock.Now()
	org := domain.Organization{
		ID:               s.genID.Generate(),
		Name:             name,
		Description:      req.Description,
		StorageContainer: container,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, &org); err != nil {
			return err
		}

		return repo.AddMember(ctx, &domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    actorID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	s.log.Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("owner_user_id", actorID),
	)

	resp := toResponse(org)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	orgID, err := parseOrgID(id)
	if err != nil {
		return nil, err
	}

	org, err := s.mustOrganization(ctx, s.repo, orgID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(*org)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrganizationsRequest) ([]domain.OrganizationResponse, error) {
	items, err := s.repo.ListOrganizations(ctx, req.IncludeInactive)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := make([]domain.OrganizationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	return resp, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.OrganizationListResponseItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Role:      item.Role,
			IsActive:  item.IsActive,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateOrganizationRequest) (*domain.OrganizationResponse, error) {
	orgID, err := parseOrgID(id)
	if err != nil {
		return nil, err
	}

	org, err := s.mustOrganization(ctx, s.repo, orgID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		org.Name = name
	}
	if req.Description != nil {
		org.Description = *req.Description
	}
	if req.StorageContainer != nil {
		container := strings.TrimSpace(*req.StorageContainer)
		if strings.Contains(container, builddomain.Separator) {
			return nil, domain.ErrInvalidContainer
		}
		org.StorageContainer = container
	}
	if req.IsActive != nil {
		org.IsActive = *req.IsActive
	}
	org.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateOrganization(ctx, org); err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := toResponse(*org)
	return &resp, nil
}

// Deactivate keeps the organization and its members but hides it from default listings.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	orgID, err := parseOrgID(id)
	if err != nil {
		return err
	}

	org, err := s.mustOrganization(ctx, s.repo, orgID)
	if err != nil {
		return err
	}
	if !org.IsActive {
		return nil
	}

	org.IsActive = false
	org.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateOrganization(ctx, org); err != nil {
		return db.Classify(err, nil)
	}

	s.record(ctx, auditdomain.Entry{
		OrgID:      &org.ID,
		Action:     auditdomain.ActionOrganizationClosed,
		TargetType: "organization",
		TargetID:   org.ID.String(),
	})
	return nil
}

func (s *Service) mustOrganization(ctx context.Context, repo domain.Repository, id snowflake.ID) (*domain.Organization, error) {
	org, err := repo.GetOrganization(ctx, id)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

// record is best effort. A failed audit write never fails the mutation.
func (s *Service) record(ctx context.Context, entry auditdomain.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit record failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

func toResponse(org domain.Organization) domain.OrganizationResponse {
	return domain.OrganizationResponse{
		ID:               org.ID.String(),
		Name:             org.Name,
		Description:      org.Description,
		StorageContainer: org.StorageContainer,
		IsActive:         org.IsActive,
		CreatedAt:        org.CreatedAt,
		UpdatedAt:        org.UpdatedAt,
	}
}

func parseOrgID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return id, nil
}
