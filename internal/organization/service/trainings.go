package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
)

func (s *Service) ListTrainings(ctx context.Context, orgID string) ([]domain.TrainingResponse, error) {
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mustOrganization(ctx, s.repo, id); err != nil {
		return nil, err
	}

	items, err := s.repo.ListTrainings(ctx, id)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := make([]domain.TrainingResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.ToTrainingResponse(item))
	}
	return resp, nil
}

// AddTraining links a formation to the organization without a custom build.
func (s *Service) AddTraining(ctx context.Context, orgID, formationID string) (*domain.TrainingResponse, error) {
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}
	fid, err := parseFormationID(formationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.mustOrganization(ctx, s.repo, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.FormationExists(ctx, fid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if !ok {
		return nil, domain.ErrFormationNotFound
	}

	existing, err := s.repo.GetTraining(ctx, id, fid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateTraining
	}

	now := s.clock.Now()
	training := domain.OrganizationTraining{
		ID:          s.genID.Generate(),
		OrgID:       id,
		FormationID: fid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTraining(ctx, &training); err != nil {
		return nil, db.Classify(err, domain.ErrDuplicateTraining)
	}

	resp := domain.ToTrainingResponse(training)
	return &resp, nil
}

func (s *Service) RemoveTraining(ctx context.Context, orgID, formationID string) error {
	id, err := parseOrgID(orgID)
	if err != nil {
		return err
	}
	fid, err := parseFormationID(formationID)
	if err != nil {
		return err
	}

	existing, err := s.repo.GetTraining(ctx, id, fid)
	if err != nil {
		return db.Classify(err, nil)
	}
	if existing == nil {
		return domain.ErrTrainingNotFound
	}

	if err := s.repo.DeleteTraining(ctx, id, fid); err != nil {
		return db.Classify(err, nil)
	}
	return nil
}

func parseFormationID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	id, err := snowflake.ParseString(raw)
	if raw == "" || err != nil || id <= 0 {
		return 0, domain.ErrInvalidFormation
	}
	return id, nil
}
