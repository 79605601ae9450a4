package routeauth

import (
	"github.com/smallbiznis/atrium/internal/config"
	"github.com/smallbiznis/atrium/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("routeauth",
	fx.Provide(newHolder, newAuthorizer),
)

func newHolder(cfg config.Config) (*PolicyHolder, error) {
	return NewPolicyHolder(cfg.RoutePolicyPath)
}

func newAuthorizer(holder *PolicyHolder, m *metrics.AuthMetrics, cfg config.Config) *Authorizer {
	return New(holder, m, cfg.HomePath, cfg.LoginPath)
}
