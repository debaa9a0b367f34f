// Package domain contains persistence models for organizations, their members
// and the trainings they run.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
)

// Organization owns a blob container, named org-<id> unless StorageContainer overrides it.
type Organization struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Name             string       `gorm:"type:text;not null" json:"name"`
	Description      string       `gorm:"type:text" json:"description"`
	StorageContainer string       `gorm:"column:storage_container;type:text" json:"storageContainer,omitempty"`
	IsActive         bool         `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt        time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Organization) TableName() string { return "organizations" }

type OrganizationMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"column:organization_id;not null;uniqueIndex:ux_org_members_org_user,priority:1" json:"organizationId"`
	UserID    string       `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_org_members_org_user,priority:2" json:"userId"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (OrganizationMember) TableName() string { return "organization_members" }

// OrganizationTraining links an organization to a formation, optionally with its own build.
type OrganizationTraining struct {
	ID            snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID        `gorm:"column:organization_id;not null;uniqueIndex:ux_org_trainings_org_formation,priority:1" json:"organizationId"`
	FormationID   snowflake.ID        `gorm:"column:formation_id;not null;uniqueIndex:ux_org_trainings_org_formation,priority:2" json:"formationId"`
	BuildID       builddomain.BuildID `gorm:"column:build_id;type:text" json:"buildId"`
	IsCustomBuild bool                `gorm:"column:is_custom_build;not null;default:false" json:"isCustomBuild"`
	CreatedAt     time.Time           `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"not null" json:"updatedAt"`
}

func (OrganizationTraining) TableName() string { return "organization_trainings" }
