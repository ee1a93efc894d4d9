package summary

import (
	"github.com/smallbiznis/seatwise/internal/ratelimit"
	"github.com/smallbiznis/seatwise/internal/summary/repository"
	"github.com/smallbiznis/seatwise/internal/summary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("summary.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(l *ratelimit.SummaryLimiter) service.Limiter { return l }),
	fx.Provide(service.New),
)
