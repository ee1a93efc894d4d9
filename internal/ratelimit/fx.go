package ratelimit

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("summary.ratelimit",
	fx.Provide(NewSummaryLimiter),
	fx.Invoke(func(l *SummaryLimiter, log *zap.Logger) {
		if !l.Enabled() {
			log.Info("summary rate limiting disabled")
		}
	}),
)
