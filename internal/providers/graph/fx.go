package graph

import (
	"github.com/smallbiznis/seatwise/internal/cache"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideFactory(log *zap.Logger, skus cache.SKUCache) *Factory {
	return NewFactory(Config{MaxRetries: 3}, log, skus)
}

var Module = fx.Module("graph.client",
	fx.Provide(provideFactory),
)
