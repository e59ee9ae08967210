package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamgate/internal/access"
	"github.com/smallbiznis/streamgate/internal/authorization"
	"github.com/smallbiznis/streamgate/internal/billing"
	"github.com/smallbiznis/streamgate/internal/catalog"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/checkout"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/gate"
	"github.com/smallbiznis/streamgate/internal/identity"
	"github.com/smallbiznis/streamgate/internal/migration"
	"github.com/smallbiznis/streamgate/internal/modal"
	"github.com/smallbiznis/streamgate/internal/observability"
	"github.com/smallbiznis/streamgate/internal/ratelimit"
	"github.com/smallbiznis/streamgate/internal/server"
	"github.com/smallbiznis/streamgate/internal/sweeper"
	"github.com/smallbiznis/streamgate/internal/watchlist"
	"github.com/smallbiznis/streamgate/pkg/db"
	"github.com/smallbiznis/streamgate/pkg/redisclient"
	"go.uber.org/fx"
)

// streamgate runs the HTTP surface and the sweeper in one process.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		redisclient.Module,
		changefeed.Module,
		ratelimit.Module,

		// Functional Domains
		identity.Module,
		billing.Module,
		access.Module,
		gate.Module,
		watchlist.Module,
		catalog.Module,
		checkout.Module,
		modal.Module,
		authorization.Module,
		sweeper.Module,
		sweeper.Schedule,

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
