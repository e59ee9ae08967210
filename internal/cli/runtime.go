package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamgate/internal/access"
	"github.com/smallbiznis/streamgate/internal/billing"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/catalog"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/checkout"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/identity"
	"github.com/smallbiznis/streamgate/internal/migration"
	"github.com/smallbiznis/streamgate/internal/observability"
	"github.com/smallbiznis/streamgate/internal/ratelimit"
	"github.com/smallbiznis/streamgate/internal/seed"
	"github.com/smallbiznis/streamgate/internal/sweeper"
	"github.com/smallbiznis/streamgate/internal/watchlist"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"github.com/smallbiznis/streamgate/pkg/db"
	"github.com/smallbiznis/streamgate/pkg/redisclient"
	"go.uber.org/fx"
)

// AccessReader reads the current access verdict for a principal.
type AccessReader interface {
	Current(ctx context.Context, principalID string) (billingdomain.EffectiveAccess, []billingdomain.SubscriptionRecord, error)
}

// SweepRunner runs sweeper jobs on demand.
type SweepRunner interface {
	Jobs() []sweeper.Job
	RunOnce(ctx context.Context) error
	RunJob(ctx context.Context, name string) error
}

type services struct {
	Access    AccessReader
	Watchlist watchlistdomain.Service
	Billing   billingdomain.Service
	Plans     seed.PlanWriter
	Sweeper   SweepRunner
}

// runtime opens the services a command needs for the duration of fn.
type runtime interface {
	WithServices(ctx context.Context, fn func(context.Context, *services) error) error
	Migrate(ctx context.Context) error
}

type fxRuntime struct{}

func newRuntime() runtime {
	return fxRuntime{}
}

type servicesIn struct {
	fx.In

	Access    *access.Reader
	Watchlist watchlistdomain.Service
	Billing   billingdomain.Service
	Plans     billingdomain.Repository
	Sweeper   *sweeper.Sweeper
}

func infrastructure() fx.Option {
	return fx.Options(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redisclient.Module,
	)
}

func (fxRuntime) WithServices(ctx context.Context, fn func(context.Context, *services) error) error {
	var svc services
	app := fx.New(
		infrastructure(),
		changefeed.Module,
		ratelimit.Module,
		identity.Module,
		billing.Module,
		access.Module,
		watchlist.Module,
		catalog.Module,
		checkout.Module,
		sweeper.Module,
		fx.Invoke(func(in servicesIn) {
			svc = services{
				Access:    in.Access,
				Watchlist: in.Watchlist,
				Billing:   in.Billing,
				Plans:     in.Plans,
				Sweeper:   in.Sweeper,
			}
		}),
	)
	return runApp(ctx, app, func(ctx context.Context) error {
		return fn(ctx, &svc)
	})
}

// Migrate applies embedded migrations; construction alone runs them.
func (fxRuntime) Migrate(ctx context.Context) error {
	app := fx.New(infrastructure(), migration.Module)
	return runApp(ctx, app, func(context.Context) error { return nil })
}

func runApp(ctx context.Context, app *fx.App, fn func(context.Context) error) error {
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(9)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
