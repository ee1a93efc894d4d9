package optimizer

import (
	"github.com/smallbiznis/seatwise/internal/optimizer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("optimizer.service",
	fx.Provide(service.New),
)
