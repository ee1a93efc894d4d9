package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/cache"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/migration"
	"github.com/smallbiznis/seatwise/internal/observability"
	"github.com/smallbiznis/seatwise/internal/server"
	"github.com/smallbiznis/seatwise/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		catalog.Module,

		// HTTP API, domains and background jobs
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
