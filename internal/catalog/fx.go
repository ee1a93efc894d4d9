package catalog

import (
	"github.com/smallbiznis/seatwise/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("catalog",
	fx.Provide(provideHolder),
)

func provideHolder(cfg config.Config, log *zap.Logger) (*Holder, error) {
	return NewHolder(HolderConfig{
		File:  cfg.CatalogFile,
		Watch: cfg.CatalogWatch,
	}, log)
}
