package server

import (
	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	identityservice "github.com/smallbiznis/streamgate/internal/identity/service"
	obscontext "github.com/smallbiznis/streamgate/internal/observability/context"
)

const contextPrincipalKey = "principal"

// withPrincipal resolves the session cookie, if any, into a principal. It never
// aborts; routes that need a principal add requirePrincipal.
func (s *Server) withPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.sessions.ReadToken(c)
		if token == "" {
			c.Next()
			return
		}

		ctx := obscontext.WithSessionID(c.Request.Context(), identityservice.SessionID(token))
		principal, err := s.identity.Authenticate(ctx, token)
		if err == nil && principal != nil {
			c.Set(contextPrincipalKey, principal)
			ctx = obscontext.WithPrincipalID(ctx, principal.ID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) requirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := principalFromContext(c); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (*identitydomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*identitydomain.Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}

// browserSessionID keys per-browser state such as the modal store.
func (s *Server) browserSessionID(c *gin.Context) string {
	token := s.sessions.ReadToken(c)
	if token == "" {
		return ""
	}
	return identityservice.SessionID(token)
}
