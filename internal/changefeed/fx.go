package changefeed

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("changefeed",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	DBCfg db.Config
	DB    *gorm.DB
	Redis *redis.Client `optional:"true"`
	Log   *zap.Logger
}

// New selects the feed implementation from CHANGEFEED_DRIVER.
func New(p Params) (Feed, error) {
	switch p.Cfg.Changefeed.Driver {
	case config.ChangefeedRedis:
		if p.Redis == nil {
			return nil, fmt.Errorf("changefeed driver %q requires REDIS_ADDR", p.Cfg.Changefeed.Driver)
		}
		return NewRedisFeed(p.Redis, p.Cfg.Changefeed.Channel, p.Log), nil
	case config.ChangefeedPostgres:
		if p.DBCfg.Type != db.TypePostgres {
			return nil, fmt.Errorf("changefeed driver %q requires a postgres database", p.Cfg.Changefeed.Driver)
		}
		feed, err := NewPostgresFeed(p.DB, db.PostgresDSN(p.DBCfg), p.Cfg.Changefeed.Channel, p.Log)
		if err != nil {
			return nil, err
		}
		p.Lc.Append(fx.Hook{OnStop: func(context.Context) error { return feed.Close() }})
		return feed, nil
	case config.ChangefeedMemory, "":
		return NewHub(), nil
	default:
		return nil, fmt.Errorf("unsupported changefeed driver %q", p.Cfg.Changefeed.Driver)
	}
}
