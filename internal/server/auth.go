package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	"go.uber.org/zap"
)

type createSessionRequest struct {
	IDToken string `json:"id_token"`
}

type sessionResponse struct {
	Principal identitydomain.Principal `json:"principal"`
	ExpiresAt string                   `json:"expires_at"`
}

// CreateSession exchanges an identity-provider token for a session cookie.
func (s *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		AbortWithError(c, newValidationError("id_token", "id_token_required", "id_token is required"))
		return
	}

	result, err := s.identity.SignIn(c.Request.Context(), identitydomain.SignInRequest{
		IDToken:      req.IDToken,
		CurrentToken: s.sessions.ReadToken(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, sessionResponse{
		Principal: result.Principal,
		ExpiresAt: result.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// Logout ends the session. Signing out an absent session still clears the cookie.
func (s *Server) Logout(c *gin.Context) {
	token := s.sessions.ReadToken(c)
	if token != "" {
		if err := s.identity.SignOut(c.Request.Context(), token); err != nil {
			s.log.Warn("sign out failed", zap.Error(err))
		}
		if s.modals != nil {
			s.modals.Drop(s.browserSessionID(c))
		}
	}
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	principal, _ := principalFromContext(c)
	c.JSON(http.StatusOK, gin.H{"principal": principal})
}
