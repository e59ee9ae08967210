package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/pkg/db/pagination"
)

type principalAccessResponse struct {
	PrincipalID   string                             `json:"principal_id"`
	Access        billingdomain.EffectiveAccess      `json:"access"`
	Subscriptions []billingdomain.SubscriptionRecord `json:"subscriptions"`
}

type billingEventsResponse struct {
	Events   []billingdomain.Event `json:"events"`
	PageInfo pagination.PageInfo   `json:"page_info"`
}

func principalIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "principal_id_required", "principal id is required"))
		return "", false
	}
	return id, true
}

// GetPrincipalAccess reports the effective access verdict for any principal.
func (s *Server) GetPrincipalAccess(c *gin.Context) {
	principalID, ok := principalIDParam(c)
	if !ok {
		return
	}
	if s.access == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	verdict, records, err := s.access.Current(c.Request.Context(), principalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if records == nil {
		records = []billingdomain.SubscriptionRecord{}
	}
	c.JSON(http.StatusOK, principalAccessResponse{
		PrincipalID:   principalID,
		Access:        verdict,
		Subscriptions: records,
	})
}

func (s *Server) ListPrincipalSubscriptions(c *gin.Context) {
	principalID, ok := principalIDParam(c)
	if !ok {
		return
	}
	records, err := s.billing.ListSubscriptions(c.Request.Context(), principalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if records == nil {
		records = []billingdomain.SubscriptionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": records})
}

func (s *Server) ListBillingEvents(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	events, info, err := s.billing.ListEvents(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if events == nil {
		events = []billingdomain.Event{}
	}
	c.JSON(http.StatusOK, billingEventsResponse{Events: events, PageInfo: info})
}
