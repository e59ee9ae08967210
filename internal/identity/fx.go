package identity

import (
	"github.com/smallbiznis/streamgate/internal/identity/repository"
	"github.com/smallbiznis/streamgate/internal/identity/service"
	"github.com/smallbiznis/streamgate/internal/identity/session"
	"github.com/smallbiznis/streamgate/internal/identity/token"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewVerifier),
	fx.Provide(func(v *token.Verifier) service.TokenVerifier { return v }),
	fx.Provide(service.New),
	session.Module,
)
