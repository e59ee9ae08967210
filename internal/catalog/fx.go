package catalog

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/streamgate/internal/catalog/cache"
	"github.com/smallbiznis/streamgate/internal/catalog/domain"
	"github.com/smallbiznis/streamgate/internal/catalog/service"
	"github.com/smallbiznis/streamgate/internal/catalog/tmdb"
	"github.com/smallbiznis/streamgate/internal/clock"
	"go.uber.org/fx"
)

type cacheParams struct {
	fx.In

	Redis *redis.Client `optional:"true"`
	Clock clock.Clock
}

var Module = fx.Module("catalog.service",
	fx.Provide(tmdb.NewClient),
	fx.Provide(func(c *tmdb.Client) domain.Source { return c }),
	fx.Provide(func(p cacheParams) cache.Cache { return cache.New(p.Redis, p.Clock) }),
	fx.Provide(service.New),
)
