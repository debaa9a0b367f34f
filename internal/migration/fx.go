package migration

import (
	"strings"

	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/internal/config"
	formationdomain "github.com/smallbiznis/formationdesk/internal/formation/domain"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&formationdomain.Formation{},
		&formationdomain.FormationContent{},
		&formationdomain.FormationStep{},
		&formationdomain.FormationQuestion{},
		&formationdomain.FormationOption{},
		&builddomain.Build3D{},
		&builddomain.BuildModule{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&organizationdomain.OrganizationTraining{},
		&auditdomain.AuditLog{},
	}
}

// Apply runs the SQL migrations on postgres. Other dialects get the schema
// from the gorm models when auto-migrate is enabled.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if strings.EqualFold(cfg.DBType, "postgres") {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("migrations applied", zap.String("dialect", cfg.DBType))
		return nil
	}

	if !cfg.DBAutoMigrate {
		log.Info("auto-migrate disabled", zap.String("dialect", cfg.DBType))
		return nil
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return err
	}
	log.Info("schema auto-migrated", zap.String("dialect", cfg.DBType))
	return nil
}

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)
