package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	ListOrganizations(ctx context.Context, includeInactive bool) ([]Organization, error)
	ListOrganizationsByUser(ctx context.Context, userID string) ([]OrganizationListItem, error)
	UpdateOrganization(ctx context.Context, org *Organization) error

	AddMember(ctx context.Context, member *OrganizationMember) error
	GetMember(ctx context.Context, orgID snowflake.ID, userID string) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)
	CountOwners(ctx context.Context, orgID snowflake.ID) (int, error)
	UpdateMemberRole(ctx context.Context, member *OrganizationMember) error
	DeleteMember(ctx context.Context, orgID snowflake.ID, userID string) error

	GetTraining(ctx context.Context, orgID, formationID snowflake.ID) (*OrganizationTraining, error)
	ListTrainings(ctx context.Context, orgID snowflake.ID) ([]OrganizationTraining, error)
	CreateTraining(ctx context.Context, training *OrganizationTraining) error
	UpdateTrainingBuild(ctx context.Context, training *OrganizationTraining) error
	DeleteTraining(ctx context.Context, orgID, formationID snowflake.ID) error
	FormationExists(ctx context.Context, formationID snowflake.ID) (bool, error)
}

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Role      string
	IsActive  bool
	CreatedAt time.Time
}
