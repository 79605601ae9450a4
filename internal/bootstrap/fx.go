package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("bootstrap",
	fx.Provide(New),
	fx.Invoke(runOnStart),
)

// runOnStart seeds the administrator before the server starts taking
// requests. A failed run is logged, not fatal: the setup endpoints stay
// available for a manual retry.
func runOnStart(lc fx.Lifecycle, log *zap.Logger, b *Bootstrapper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := b.Run(ctx); err != nil {
				log.Error("bootstrap failed", zap.Error(err))
			}
			return nil
		},
	})
}
