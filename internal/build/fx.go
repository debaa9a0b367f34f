package build

import (
	"github.com/smallbiznis/formationdesk/internal/build/repository"
	"github.com/smallbiznis/formationdesk/internal/build/service"
	"go.uber.org/fx"
)

var Module = fx.Module("build.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
