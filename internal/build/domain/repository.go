package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FormationExists(ctx context.Context, formationID snowflake.ID) (bool, error)
	SetFormationBuildID(ctx context.Context, formationID snowflake.ID, buildID BuildID) error

	GetFormationBuild(ctx context.Context, formationID snowflake.ID) (*Build3D, error)
	ListBuildModules(ctx context.Context, build3DID snowflake.ID) ([]BuildModule, error)
	CreateFormationBuild(ctx context.Context, build *Build3D, modules []BuildModule) error
	DeleteFormationBuilds(ctx context.Context, formationID snowflake.ID) error

	// Counts are keyed by the build id exactly as stored.
	CountFormationsByBuild(ctx context.Context, storedIDs []string) (map[string]int, error)
	CountOrganizationsByBuild(ctx context.Context, storedIDs []string) (map[string]int, error)

	// ClearBuildReferences detaches every formation, Build3D row and training
	// override that points at one of the stored ids.
	ClearBuildReferences(ctx context.Context, storedIDs []string) error
}
