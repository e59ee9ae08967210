package sweeper

import (
	"context"

	"github.com/smallbiznis/streamgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sweeper",
	fx.Provide(New),
)

// Schedule starts the cron loop with the application lifecycle.
var Schedule = fx.Invoke(register)

func register(lc fx.Lifecycle, cfg config.Config, sweeper *Sweeper, log *zap.Logger) {
	if !cfg.Sweeper.Enabled {
		log.Info("sweeper disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return sweeper.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return sweeper.Stop(stopCtx)
		},
	})
}
