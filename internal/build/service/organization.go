package service

import (
	"context"

	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	"github.com/smallbiznis/formationdesk/internal/build/domain"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"gorm.io/gorm"
)

// ListOrganizationBuilds lists the organization's container. Artifacts tagged
// with another organization are left out. In a container of its own, untagged
// artifacts belong to the organization too.
func (s *Service) ListOrganizationBuilds(ctx context.Context, orgID string) (*domain.ListBuildsResponse, error) {
	org, err := s.mustOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	conventions := s.storage.Get()
	container := organizationdomain.ContainerName(*org, conventions.OrganizationPrefix)
	dedicated := container != conventions.DefaultContainer

	artifacts, err := s.gateway.ListArtifacts(ctx, container)
	if err != nil {
		return nil, err
	}

	owner := org.ID.String()
	builds := make([]domain.BuildResponse, 0, len(artifacts))
	for _, a := range artifacts {
		tagged := a.OrganizationID()
		if tagged == owner || (dedicated && tagged == "") {
			builds = append(builds, domain.ToBuildResponse(container, a))
		}
	}

	warnings := s.enrich(ctx, container, builds)
	return &domain.ListBuildsResponse{Container: container, Builds: builds, Warnings: warnings}, nil
}

// AssociateTraining points the organization's training of a formation at a
// custom build, creating the training when the formation was not assigned yet.
func (s *Service) AssociateTraining(ctx context.Context, orgID, formationID, buildID string) (*domain.TrainingBuildResponse, error) {
	org, err := s.mustOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	id, err := domain.ResolveBuildID(buildID, s.storage.Get().LegacyContainer)
	if err != nil {
		return nil, err
	}

	var training organizationdomain.OrganizationTraining
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.WithTx(tx).FormationExists(ctx, fid)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrFormationNotFound
		}

		orgs := s.orgs.WithTx(tx)
		existing, err := orgs.GetTraining(ctx, org.ID, fid)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if existing == nil {
			training = organizationdomain.OrganizationTraining{
				ID:            s.genID.Generate(),
				OrgID:         org.ID,
				FormationID:   fid,
				BuildID:       id,
				IsCustomBuild: true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			return orgs.CreateTraining(ctx, &training)
		}

		training = *existing
		training.BuildID = id
		training.IsCustomBuild = true
		training.UpdatedAt = now
		return orgs.UpdateTrainingBuild(ctx, &training)
	})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	s.metrics.RecordBuildLink(ctx, "training", "link")
	s.record(ctx, auditdomain.Entry{
		OrgID:      &org.ID,
		Action:     auditdomain.ActionTrainingBuildSet,
		TargetType: "training",
		TargetID:   fid.String(),
		Metadata:   map[string]any{"build_id": id.String()},
	})

	resp := toTrainingBuildResponse(training)
	return &resp, nil
}

// RemoveTrainingBuild drops the custom build but keeps the training.
func (s *Service) RemoveTrainingBuild(ctx context.Context, orgID, formationID string) (*domain.TrainingBuildResponse, error) {
	org, err := s.mustOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}

	training, err := s.orgs.GetTraining(ctx, org.ID, fid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if training == nil {
		return nil, domain.ErrTrainingNotFound
	}

	training.BuildID = domain.BuildID{}
	training.IsCustomBuild = false
	training.UpdatedAt = s.clock.Now()
	if err := s.orgs.UpdateTrainingBuild(ctx, training); err != nil {
		return nil, db.Classify(err, nil)
	}

	s.metrics.RecordBuildLink(ctx, "training", "unlink")
	s.record(ctx, auditdomain.Entry{
		OrgID:      &org.ID,
		Action:     auditdomain.ActionTrainingBuildReset,
		TargetType: "training",
		TargetID:   fid.String(),
	})

	resp := toTrainingBuildResponse(*training)
	return &resp, nil
}

func toTrainingBuildResponse(t organizationdomain.OrganizationTraining) domain.TrainingBuildResponse {
	resp := domain.TrainingBuildResponse{
		ID:             t.ID.String(),
		OrganizationID: t.OrgID.String(),
		FormationID:    t.FormationID.String(),
		IsCustomBuild:  t.IsCustomBuild,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if !t.BuildID.IsZero() {
		id := t.BuildID.String()
		resp.BuildID = &id
	}
	return resp
}
