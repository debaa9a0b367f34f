package formation

import (
	"github.com/smallbiznis/formationdesk/internal/formation/repository"
	"github.com/smallbiznis/formationdesk/internal/formation/service"
	"github.com/smallbiznis/formationdesk/internal/formation/transfer"
	"go.uber.org/fx"
)

var Module = fx.Module("formation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
	fx.Provide(transfer.New),
)
