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
	"github.com/smallbiznis/streamgate/internal/modal"
	"github.com/smallbiznis/streamgate/internal/observability"
	"github.com/smallbiznis/streamgate/internal/ratelimit"
	"github.com/smallbiznis/streamgate/internal/server"
	"github.com/smallbiznis/streamgate/internal/watchlist"
	"github.com/smallbiznis/streamgate/pkg/db"
	"github.com/smallbiznis/streamgate/pkg/redisclient"
	"go.uber.org/fx"
)

// api serves HTTP only. Background jobs run in apps/worker.
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

		identity.Module,
		billing.Module,
		access.Module,
		gate.Module,
		watchlist.Module,
		catalog.Module,
		checkout.Module,
		modal.Module,
		authorization.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
