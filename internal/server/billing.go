package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/streamgate/internal/checkout/domain"
)

type createCheckoutRequest struct {
	PlanID string `json:"plan_id"`
}

type createPortalRequest struct {
	ReturnURL string `json:"return_url"`
}

type redirectResponse struct {
	SessionID int64  `json:"session_id,string"`
	URL       string `json:"url"`
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.billing.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// CreateCheckout answers with the hosted checkout URL once the provider
// returned one.
func (s *Server) CreateCheckout(c *gin.Context) {
	principal, _ := principalFromContext(c)

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		AbortWithError(c, newValidationError("plan_id", "plan_id_required", "plan_id is required"))
		return
	}

	session, err := s.checkout.CreateCheckout(c.Request.Context(), checkoutdomain.CreateCheckoutRequest{
		PrincipalID: principal.ID,
		Email:       principal.Email,
		PlanID:      planID,
	})
	if err != nil {
		AbortWithError(c, sessionError(session, err))
		return
	}
	c.JSON(http.StatusOK, redirectResponse{SessionID: session.ID, URL: deref(session.URL)})
}

func (s *Server) CreateBillingPortal(c *gin.Context) {
	principal, _ := principalFromContext(c)

	var req createPortalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	session, err := s.checkout.CreatePortal(c.Request.Context(), checkoutdomain.CreatePortalRequest{
		PrincipalID: principal.ID,
		ReturnURL:   strings.TrimSpace(req.ReturnURL),
	})
	if err != nil {
		AbortWithError(c, sessionError(session, err))
		return
	}
	c.JSON(http.StatusOK, redirectResponse{SessionID: session.ID, URL: deref(session.URL)})
}

func (s *Server) GetAccount(c *gin.Context) {
	principal, _ := principalFromContext(c)
	summary, err := s.billing.Account(c.Request.Context(), principal.ID, principal.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func sessionError(session *checkoutdomain.Session, err error) error {
	if errors.Is(err, checkoutdomain.ErrSessionFailed) && session != nil {
		return &ProviderError{Message: session.FailureMessage()}
	}
	return err
}
