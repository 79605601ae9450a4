package identity

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/atrium/internal/config"
	"github.com/smallbiznis/atrium/internal/identity/bridge"
	"github.com/smallbiznis/atrium/internal/identity/domain"
	"github.com/smallbiznis/atrium/internal/identity/repository"
	"github.com/smallbiznis/atrium/internal/identity/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("identity",
	fx.Provide(repository.New),
	fx.Provide(newService),
	fx.Provide(newBridge),
)

func newService(log *zap.Logger, cfg config.Config, repo repository.Repository, sessions repository.SessionRepository, genID *snowflake.Node) domain.Service {
	return service.New(log, repo, sessions, genID, cfg.SessionTTL)
}

func newBridge(log *zap.Logger, svc domain.Service) domain.Bridge {
	return bridge.New(log, svc)
}
