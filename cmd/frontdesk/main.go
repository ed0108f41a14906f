package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	"github.com/smallbiznis/frontdesk/internal/autocheckout"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/lock"
	"github.com/smallbiznis/frontdesk/internal/migration"
	"github.com/smallbiznis/frontdesk/internal/observability"
	"github.com/smallbiznis/frontdesk/internal/providers"
	"github.com/smallbiznis/frontdesk/internal/scheduler"
	"github.com/smallbiznis/frontdesk/internal/seed"
	"github.com/smallbiznis/frontdesk/internal/server"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		seed.Module,

		providers.Module,
		lock.Module,
		authorization.Module,
		autocheckout.Module,

		server.Module,
		scheduler.Module,
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
