package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/atrium/internal/authstate"
	"github.com/smallbiznis/atrium/internal/bootstrap"
	"github.com/smallbiznis/atrium/internal/config"
	"github.com/smallbiznis/atrium/internal/identity"
	"github.com/smallbiznis/atrium/internal/migration"
	"github.com/smallbiznis/atrium/internal/observability"
	"github.com/smallbiznis/atrium/internal/profile"
	"github.com/smallbiznis/atrium/internal/ratelimit"
	"github.com/smallbiznis/atrium/internal/routeauth"
	"github.com/smallbiznis/atrium/internal/server"
	"github.com/smallbiznis/atrium/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		identity.Module,
		profile.Module,
		authstate.Module,
		routeauth.Module,
		bootstrap.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
