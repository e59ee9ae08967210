package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/streamgate/internal/modal"
)

type openModalRequest struct {
	TitleID   string `json:"title_id"`
	MediaKind string `json:"media_kind"`
}

func (s *Server) modalStore(c *gin.Context) (*modal.Store, bool) {
	sessionID := s.browserSessionID(c)
	if s.modals == nil || sessionID == "" {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}
	return s.modals.For(sessionID), true
}

func (s *Server) GetModal(c *gin.Context) {
	store, ok := s.modalStore(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.Snapshot())
}

// OpenModal loads the title detail and makes it the open modal.
func (s *Server) OpenModal(c *gin.Context) {
	store, ok := s.modalStore(c)
	if !ok {
		return
	}

	var req openModalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	titleID := strings.TrimSpace(req.TitleID)
	if titleID == "" {
		AbortWithError(c, newValidationError("title_id", "title_id_required", "title_id is required"))
		return
	}

	detail, err := s.catalog.Detail(c.Request.Context(), req.MediaKind, titleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	store.Open(detail)
	c.JSON(http.StatusOK, store.Snapshot())
}

// CloseModal hides the modal. The last title stays current.
func (s *Server) CloseModal(c *gin.Context) {
	store, ok := s.modalStore(c)
	if !ok {
		return
	}
	store.Close()
	c.JSON(http.StatusOK, store.Snapshot())
}
