package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateFormation(ctx context.Context, f *Formation) error
	GetFormation(ctx context.Context, id snowflake.ID) (*Formation, error)
	GetFormationByPortableID(ctx context.Context, formationID string) (*Formation, error)
	FormationIDExists(ctx context.Context, formationID string) (bool, error)
	ListFormations(ctx context.Context, afterID snowflake.ID, limit int) ([]Formation, error)
	ListFormationsByIDs(ctx context.Context, ids []snowflake.ID) ([]Formation, error)
	UpdateFormation(ctx context.Context, f *Formation) error
	DeleteFormation(ctx context.Context, id snowflake.ID) error

	CreateModule(ctx context.Context, m Module) error
	GetContent(ctx context.Context, id snowflake.ID) (*FormationContent, error)
	ListContents(ctx context.Context, formationID snowflake.ID) ([]FormationContent, error)
	ContentIDExists(ctx context.Context, formationID snowflake.ID, contentID string) (bool, error)
	CountContents(ctx context.Context, formationID snowflake.ID) (int, error)
	CountContentsByFormation(ctx context.Context, formationIDs []snowflake.ID) (map[snowflake.ID]int, error)
	UpdateContent(ctx context.Context, c *FormationContent) error
	DeleteContent(ctx context.Context, id snowflake.ID) error
	SetContentOrder(ctx context.Context, id snowflake.ID, order int) error
	// ShiftOrders adds delta to every order >= from, staged through negative values.
	ShiftOrders(ctx context.Context, formationID snowflake.ID, from, delta int) error

	ListSteps(ctx context.Context, moduleIDs []snowflake.ID) ([]FormationStep, error)
	ReplaceSteps(ctx context.Context, moduleID snowflake.ID, steps []FormationStep) error
	ListQuestions(ctx context.Context, moduleIDs []snowflake.ID) ([]QuizQuestion, error)
	ReplaceQuestions(ctx context.Context, moduleID snowflake.ID, questions []QuizQuestion) error
}
