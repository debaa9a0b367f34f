package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Service) GetFormationBuild(ctx context.Context, formationID string) (*domain.FormationBuildResponse, error) {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.FormationExists(ctx, fid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if !exists {
		return nil, domain.ErrFormationNotFound
	}

	build, err := s.repo.GetFormationBuild(ctx, fid)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if build == nil {
		return nil, domain.ErrBuildNotFound
	}

	modules, err := s.repo.ListBuildModules(ctx, build.ID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if modules == nil {
		modules = []domain.BuildModule{}
	}
	return &domain.FormationBuildResponse{Build3D: *build, Modules: modules}, nil
}

// LinkFormation replaces whatever build the formation had with buildId.
func (s *Service) LinkFormation(ctx context.Context, formationID string, req domain.LinkBuildRequest) (*domain.FormationBuildResponse, error) {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	id, err := domain.ResolveBuildID(req.BuildID, s.storage.Get().LegacyContainer)
	if err != nil {
		return nil, err
	}

	artifact, err := s.findArtifact(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	build := domain.Build3D{
		ID:            s.genID.Generate(),
		FormationID:   fid,
		BuildID:       id,
		Name:          firstNonEmpty(req.Name, artifact.Name),
		Version:       firstNonEmpty(req.Version, artifact.Version),
		Description:   firstNonEmpty(req.Description, artifact.Description),
		ContainerName: id.Container,
		ArtifactURL:   artifact.URL,
		Status:        domain.StatusActive,
		ObjectMapping: datatypes.JSONMap(req.ObjectMapping),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	modules := make([]domain.BuildModule, 0, len(req.Modules))
	for i, m := range req.Modules {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		modules = append(modules, domain.BuildModule{
			ID:          s.genID.Generate(),
			Build3DID:   build.ID,
			Name:        name,
			SceneObject: m.SceneObject,
			Position:    i,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.FormationExists(ctx, fid)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrFormationNotFound
		}
		if err := repo.DeleteFormationBuilds(ctx, fid); err != nil {
			return err
		}
		if err := repo.CreateFormationBuild(ctx, &build, modules); err != nil {
			return err
		}
		return repo.SetFormationBuildID(ctx, fid, id)
	})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	s.metrics.RecordBuildLink(ctx, "formation", "link")
	s.log.Info("formation build linked",
		zap.String("formation_id", fid.String()),
		zap.String("build_id", id.String()),
	)
	return &domain.FormationBuildResponse{Build3D: build, Modules: modules}, nil
}

// UnlinkFormation clears the formation's build. Unlinking a formation without
// a build is not an error.
func (s *Service) UnlinkFormation(ctx context.Context, formationID string) error {
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.FormationExists(ctx, fid)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrFormationNotFound
		}
		if err := repo.DeleteFormationBuilds(ctx, fid); err != nil {
			return err
		}
		return repo.SetFormationBuildID(ctx, fid, domain.BuildID{})
	})
	if err != nil {
		return db.Classify(err, nil)
	}

	s.metrics.RecordBuildLink(ctx, "formation", "unlink")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
