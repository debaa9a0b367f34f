// Package seed bootstraps the first organization of a fresh deployment.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/config"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultOrgName = "Main"

type Params struct {
	fx.In

	DB     *gorm.DB
	Config config.Config
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
}

// EnsureMainOrganization creates the bootstrap organization owned by the
// configured user. It does nothing when no owner is configured or when any
// organization already exists.
func EnsureMainOrganization(p Params) error {
	ownerID := strings.TrimSpace(p.Config.BootstrapOwnerID)
	if ownerID == "" {
		return nil
	}
	if p.DB == nil {
		return errors.New("seed database handle is required")
	}

	log := p.Log.Named("seed")
	ctx := context.Background()
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&organizationdomain.Organization{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		name := strings.TrimSpace(p.Config.BootstrapOrgName)
		if name == "" {
			name = defaultOrgName
		}
		now := p.Clock.Now().UTC()
		org := organizationdomain.Organization{
			ID:        p.GenID.Generate(),
			Name:      name,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		member := organizationdomain.OrganizationMember{
			ID:        p.GenID.Generate(),
			OrgID:     org.ID,
			UserID:    ownerID,
			Role:      organizationdomain.RoleOwner,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		log.Info("bootstrap organization created",
			zap.String("organization_id", org.ID.String()),
			zap.String("owner_id", ownerID),
		)
		return nil
	})
}

var Module = fx.Module("seed",
	fx.Invoke(EnsureMainOrganization),
)
