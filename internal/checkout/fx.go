package checkout

import (
	"github.com/smallbiznis/streamgate/internal/billing/adapters/stripe"
	"github.com/smallbiznis/streamgate/internal/checkout/repository"
	"github.com/smallbiznis/streamgate/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(c *stripe.Client) service.Provider { return c }),
	fx.Provide(service.New),
)
