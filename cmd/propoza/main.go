package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/clock"
	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/migration"
	"github.com/smallbiznis/propoza/internal/observability"
	"github.com/smallbiznis/propoza/internal/server"
	"github.com/smallbiznis/propoza/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
