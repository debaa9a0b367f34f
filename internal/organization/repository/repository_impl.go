package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/organization/domain"
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

func (r *repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, description, storage_container, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Description,
		org.StorageContainer,
		org.IsActive,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repository) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) ListOrganizations(ctx context.Context, includeInactive bool) ([]domain.Organization, error) {
	var items []domain.Organization
	stmt := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if !includeInactive {
		stmt = stmt.Where("is_active = ?", true)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListOrganizationsByUser(ctx context.Context, userID string) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, m.role, o.is_active, o.created_at
		 FROM organizations o
		 JOIN organization_members m ON m.organization_id = o.id
		 WHERE m.user_id = ?
		 ORDER BY o.created_at ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateOrganization(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET name = ?, description = ?, storage_container = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		org.Name,
		org.Description,
		org.StorageContainer,
		org.IsActive,
		org.UpdatedAt,
		org.ID,
	).Error
}

func (r *repository) AddMember(ctx context.Context, member *domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organization_members (id, organization_id, user_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.OrgID,
		member.UserID,
		member.Role,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repository) GetMember(ctx context.Context, orgID snowflake.ID, userID string) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	var items []domain.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountOwners(ctx context.Context, orgID snowflake.ID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.OrganizationMember{}).
		Where("organization_id = ? AND role = ?", orgID, domain.RoleOwner).
		Count(&count).Error
	return int(count), err
}

func (r *repository) UpdateMemberRole(ctx context.Context, member *domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE organization_members SET role = ?, updated_at = ? WHERE id = ?`,
		member.Role,
		member.UpdatedAt,
		member.ID,
	).Error
}

func (r *repository) DeleteMember(ctx context.Context, orgID snowflake.ID, userID string) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM organization_members WHERE organization_id = ? AND user_id = ?`,
		orgID,
		userID,
	).Error
}

func (r *repository) GetTraining(ctx context.Context, orgID, formationID snowflake.ID) (*domain.OrganizationTraining, error) {
	var training domain.OrganizationTraining
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND formation_id = ?", orgID, formationID).
		First(&training).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &training, nil
}

func (r *repository) ListTrainings(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationTraining, error) {
	var items []domain.OrganizationTraining
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateTraining(ctx context.Context, training *domain.OrganizationTraining) error {
	return r.db.WithContext(ctx).Create(training).Error
}

func (r *repository) UpdateTrainingBuild(ctx context.Context, training *domain.OrganizationTraining) error {
	return r.db.WithContext(ctx).Model(&domain.OrganizationTraining{}).
		Where("id = ?", training.ID).
		Updates(map[string]any{
			"build_id":        training.BuildID,
			"is_custom_build": training.IsCustomBuild,
			"updated_at":      training.UpdatedAt,
		}).Error
}

func (r *repository) DeleteTraining(ctx context.Context, orgID, formationID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM organization_trainings WHERE organization_id = ? AND formation_id = ?`,
		orgID,
		formationID,
	).Error
}

func (r *repository) FormationExists(ctx context.Context, formationID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM formations WHERE id = ?`,
		formationID,
	).Scan(&count).Error
	return count > 0, err
}
