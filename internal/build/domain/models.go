// Package domain holds the records that tie blob store artifacts to formations
// and organizations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)

// Build3D is the link between a formation and one artifact. A formation has at most one.
type Build3D struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	FormationID   snowflake.ID      `gorm:"column:formation_id;not null;index" json:"formationId"`
	BuildID       BuildID           `gorm:"column:build_id;type:text;not null" json:"buildId"`
	Name          string            `gorm:"type:text;not null" json:"name"`
	Version       string            `gorm:"type:text" json:"version"`
	Description   string            `gorm:"type:text" json:"description"`
	ContainerName string            `gorm:"column:container_name;type:text;not null" json:"containerName"`
	ArtifactURL   string            `gorm:"column:artifact_url;type:text" json:"artifactUrl"`
	Status        string            `gorm:"type:text;not null" json:"status"`
	ObjectMapping datatypes.JSONMap `gorm:"column:object_mapping" json:"objectMapping"`
	CreatedAt     time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updatedAt"`
}

func (Build3D) TableName() string { return "build3d" }

// BuildModule maps a scene object of the build to a named 3D module.
type BuildModule struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Build3DID   snowflake.ID `gorm:"column:build3d_id;not null;index" json:"build3dId"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	SceneObject string       `gorm:"column:scene_object;type:text" json:"sceneObject"`
	Position    int          `gorm:"not null" json:"position"`
}

func (BuildModule) TableName() string { return "build_modules" }
