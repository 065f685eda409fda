package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gymspot/gymspot/internal/campaign/dispatch"
	"github.com/gymspot/gymspot/internal/clock"
	"github.com/gymspot/gymspot/internal/config"
	"github.com/gymspot/gymspot/internal/observability"
	"github.com/gymspot/gymspot/internal/providers/email"
	"github.com/gymspot/gymspot/internal/ratelimit"
	"github.com/gymspot/gymspot/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		email.Module,
		ratelimit.Module,
		dispatch.Module,

		fx.Invoke(observability.RunMetricsServer),
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
