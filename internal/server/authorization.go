package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authz == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authz.Authorize(c.Request.Context(), principal, strings.TrimSpace(object), strings.TrimSpace(action)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
