package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
)

type putWatchlistRequest struct {
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
	MediaKind    string `json:"media_kind"`
	Overview     string `json:"overview"`
}

type watchlistResponse struct {
	Items []watchlistdomain.Entry `json:"items"`
}

func titleIDParam(c *gin.Context) (string, bool) {
	titleID := strings.TrimSpace(c.Param("title_id"))
	if titleID == "" {
		AbortWithError(c, newValidationError("title_id", "title_id_required", "title_id is required"))
		return "", false
	}
	return titleID, true
}

func (s *Server) ListWatchlist(c *gin.Context) {
	principal, _ := principalFromContext(c)
	entries, err := s.watchlist.List(c.Request.Context(), principal.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if entries == nil {
		entries = []watchlistdomain.Entry{}
	}
	c.JSON(http.StatusOK, watchlistResponse{Items: entries})
}

// GetWatchlistItem reports whether a single title is saved, read from the live
// membership stream.
func (s *Server) GetWatchlistItem(c *gin.Context) {
	principal, _ := principalFromContext(c)
	titleID, ok := titleIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	select {
	case entries, ok := <-s.watchlist.Observe(ctx, principal.ID):
		if !ok {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		c.JSON(http.StatusOK, gin.H{"title_id": titleID, "saved": watchlistdomain.Contains(entries, titleID)})
	case <-ctx.Done():
		AbortWithError(c, ErrServiceUnavailable)
	}
}

func (s *Server) PutWatchlistItem(c *gin.Context) {
	principal, _ := principalFromContext(c)
	titleID, ok := titleIDParam(c)
	if !ok {
		return
	}

	var req putWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.watchlist.Add(c.Request.Context(), principal.ID, watchlistdomain.Title{
		ID:           titleID,
		Name:         strings.TrimSpace(req.Name),
		PosterPath:   optional(strings.TrimSpace(req.PosterPath)),
		BackdropPath: optional(strings.TrimSpace(req.BackdropPath)),
		MediaKind:    req.MediaKind,
		Overview:     optional(strings.TrimSpace(req.Overview)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) DeleteWatchlistItem(c *gin.Context) {
	principal, _ := principalFromContext(c)
	titleID, ok := titleIDParam(c)
	if !ok {
		return
	}
	if err := s.watchlist.Remove(c.Request.Context(), principal.ID, titleID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamWatchlist pushes the full saved set on every change.
func (s *Server) StreamWatchlist(c *gin.Context) {
	principal, _ := principalFromContext(c)
	ctx := c.Request.Context()
	stream, ok := openEventStream(c)
	if !ok {
		return
	}

	snapshots := s.watchlist.Observe(ctx, principal.ID)
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entries, ok := <-snapshots:
			if !ok {
				return
			}
			if entries == nil {
				entries = []watchlistdomain.Entry{}
			}
			if err := stream.send("watchlist", watchlistResponse{Items: entries}); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := stream.heartbeat(); err != nil {
				return
			}
		}
	}
}
