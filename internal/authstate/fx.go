package authstate

import (
	"context"

	"github.com/smallbiznis/atrium/internal/config"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	"github.com/smallbiznis/atrium/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("authstate",
	fx.Provide(newController),
	fx.Invoke(runController),
)

func newController(
	log *zap.Logger,
	cfg config.Config,
	bridge identitydomain.Bridge,
	store profiledomain.Store,
	m *metrics.AuthMetrics,
) *Controller {
	return New(log, bridge, store, m, Config{
		BootstrapAdminUsername: cfg.AdminUsername,
		InitTimeout:            cfg.AuthInitTimeout,
	})
}

func runController(lc fx.Lifecycle, ctrl *Controller) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ctrl.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			ctrl.Close()
			return nil
		},
	})
}
