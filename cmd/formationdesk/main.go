package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/audit"
	"github.com/smallbiznis/formationdesk/internal/authorization"
	blobprovider "github.com/smallbiznis/formationdesk/internal/blobstore/provider"
	"github.com/smallbiznis/formationdesk/internal/build"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/config"
	"github.com/smallbiznis/formationdesk/internal/formation"
	"github.com/smallbiznis/formationdesk/internal/kv"
	"github.com/smallbiznis/formationdesk/internal/migration"
	"github.com/smallbiznis/formationdesk/internal/observability"
	"github.com/smallbiznis/formationdesk/internal/organization"
	"github.com/smallbiznis/formationdesk/internal/seed"
	"github.com/smallbiznis/formationdesk/internal/server"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,
		kv.Module,
		blobprovider.Module,

		// Functional Domains
		audit.Module,
		authorization.Module,
		formation.Module,
		organization.Module,
		build.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
