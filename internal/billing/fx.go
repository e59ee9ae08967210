package billing

import (
	"github.com/smallbiznis/streamgate/internal/billing/adapters"
	"github.com/smallbiznis/streamgate/internal/billing/adapters/stripe"
	"github.com/smallbiznis/streamgate/internal/billing/repository"
	"github.com/smallbiznis/streamgate/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(stripe.NewAdapter),
	fx.Provide(stripe.NewClient),
	fx.Provide(func(s *stripe.Adapter) *adapters.Registry {
		return adapters.NewRegistry(s)
	}),
	fx.Provide(service.New),
)
