package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/streamgate/internal/catalog/domain"
	"github.com/smallbiznis/streamgate/internal/gate"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"go.uber.org/zap"
)

type homeResponse struct {
	State gate.State `json:"state"`
	catalogdomain.Home
}

// GetHome renders the browse page only for a granted visitor. Every other gate
// verdict is answered with where the client must go instead.
func (s *Server) GetHome(c *gin.Context) {
	update, err := s.resolveGate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch update.State {
	case gate.StateAuthenticatedGranted:
	case gate.StateUnauthenticated:
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorPayload{
			Type:       "unauthorized",
			Message:    "sign in required",
			NavigateTo: s.navigateTo(update),
		}})
		return
	case gate.StateAuthenticatedRedirecting:
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: errorPayload{
			Type:       "subscription_required",
			Message:    "an active subscription is required",
			NavigateTo: s.navigateTo(update),
		}})
		return
	default:
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	var myList []catalogdomain.Title
	if update.Principal != nil {
		entries, err := s.watchlist.List(ctx, update.Principal.ID)
		if err != nil {
			s.log.Warn("home: watchlist unavailable", zap.Error(err))
		}
		myList = catalogTitles(entries)
	}

	home, err := s.catalog.Home(ctx, s.gateConfig().Rows, myList)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, homeResponse{State: update.State, Home: home})
}

func catalogTitles(entries []watchlistdomain.Entry) []catalogdomain.Title {
	titles := make([]catalogdomain.Title, 0, len(entries))
	for _, entry := range entries {
		titles = append(titles, catalogdomain.Title{
			ID:           entry.TitleID,
			Name:         entry.Name,
			Overview:     deref(entry.Overview),
			PosterPath:   deref(entry.PosterPath),
			BackdropPath: deref(entry.BackdropPath),
			MediaKind:    entry.MediaKind,
		})
	}
	return titles
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
