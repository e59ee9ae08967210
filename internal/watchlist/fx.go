package watchlist

import (
	"github.com/smallbiznis/streamgate/internal/watchlist/repository"
	"github.com/smallbiznis/streamgate/internal/watchlist/service"
	"go.uber.org/fx"
)

var Module = fx.Module("watchlist.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
