package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamgate/internal/billing"
	"github.com/smallbiznis/streamgate/internal/catalog"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/checkout"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/identity"
	"github.com/smallbiznis/streamgate/internal/observability"
	"github.com/smallbiznis/streamgate/internal/ratelimit"
	"github.com/smallbiznis/streamgate/internal/sweeper"
	"github.com/smallbiznis/streamgate/pkg/db"
	"github.com/smallbiznis/streamgate/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisclient.Module,
		changefeed.Module,
		ratelimit.Module,

		// Domain services required by sweeper jobs
		identity.Module,
		billing.Module,
		catalog.Module,
		checkout.Module,

		// No server module!
		sweeper.Module,
		sweeper.Schedule,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
