package maintenance

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("maintenance",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			r.Start()
			return nil
		},
		OnStop: r.Stop,
	})
}
