package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/build/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) FormationExists(ctx context.Context, formationID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM formations WHERE id = ?`,
		formationID,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repository) SetFormationBuildID(ctx context.Context, formationID snowflake.ID, buildID domain.BuildID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE formations SET build_id = ? WHERE id = ?`,
		buildID,
		formationID,
	).Error
}

func (r *repository) GetFormationBuild(ctx context.Context, formationID snowflake.ID) (*domain.Build3D, error) {
	var build domain.Build3D
	err := r.db.WithContext(ctx).
		Where("formation_id = ?", formationID).
		Order("created_at DESC, id DESC").
		First(&build).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &build, nil
}

func (r *repository) ListBuildModules(ctx context.Context, build3DID snowflake.ID) ([]domain.BuildModule, error) {
	var items []domain.BuildModule
	err := r.db.WithContext(ctx).
		Where("build3d_id = ?", build3DID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateFormationBuild(ctx context.Context, build *domain.Build3D, modules []domain.BuildModule) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(build).Error; err != nil {
		return err
	}
	if len(modules) == 0 {
		return nil
	}
	return db.Create(&modules).Error
}

func (r *repository) DeleteFormationBuilds(ctx context.Context, formationID snowflake.ID) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(
		`DELETE FROM build_modules WHERE build3d_id IN (SELECT id FROM build3d WHERE formation_id = ?)`,
		formationID,
	).Error; err != nil {
		return err
	}
	return db.Exec(`DELETE FROM build3d WHERE formation_id = ?`, formationID).Error
}

type buildCount struct {
	BuildID string
	Total   int
}

func (r *repository) CountFormationsByBuild(ctx context.Context, storedIDs []string) (map[string]int, error) {
	return r.countBy(ctx,
		`SELECT build_id, COUNT(*) AS total
		 FROM formations
		 WHERE build_id IN ?
		 GROUP BY build_id`,
		storedIDs,
	)
}

func (r *repository) CountOrganizationsByBuild(ctx context.Context, storedIDs []string) (map[string]int, error) {
	return r.countBy(ctx,
		`SELECT build_id, COUNT(DISTINCT organization_id) AS total
		 FROM organization_trainings
		 WHERE build_id IN ?
		 GROUP BY build_id`,
		storedIDs,
	)
}

func (r *repository) countBy(ctx context.Context, query string, storedIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(storedIDs))
	if len(storedIDs) == 0 {
		return out, nil
	}

	var rows []buildCount
	if err := r.db.WithContext(ctx).Raw(query, storedIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.BuildID] = row.Total
	}
	return out, nil
}

func (r *repository) ClearBuildReferences(ctx context.Context, storedIDs []string) error {
	if len(storedIDs) == 0 {
		return nil
	}

	db := r.db.WithContext(ctx)
	stmts := []string{
		`UPDATE formations SET build_id = NULL WHERE build_id IN ?`,
		`DELETE FROM build_modules WHERE build3d_id IN (SELECT id FROM build3d WHERE build_id IN ?)`,
		`DELETE FROM build3d WHERE build_id IN ?`,
		`UPDATE organization_trainings SET build_id = NULL, is_custom_build = FALSE WHERE build_id IN ?`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt, storedIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
