package tenantsync

import (
	"github.com/smallbiznis/seatwise/internal/tenantsync/repository"
	"github.com/smallbiznis/seatwise/internal/tenantsync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenantsync.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.ProvideSealer),
	fx.Provide(service.New),
)
