package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/streamgate/internal/gate"
	"github.com/smallbiznis/streamgate/internal/identity"
	obstracing "github.com/smallbiznis/streamgate/internal/observability/tracing"
)

type gateResponse struct {
	State      gate.State `json:"state"`
	NavigateTo string     `json:"navigate_to,omitempty"`
	Granted    bool       `json:"granted"`
}

// watchGate starts a gate session for the visitor's cookie. The session ends
// when ctx is done.
func (s *Server) watchGate(ctx context.Context, c *gin.Context) <-chan gate.Update {
	provider := s.identity.Provider(s.sessions.ReadToken(c))
	phases := identity.Observe(ctx, provider, s.log)
	return s.gate.Run(ctx, phases)
}

// resolveGate waits for the first settled gate state.
func (s *Server) resolveGate(c *gin.Context) (gate.Update, error) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := s.watchGate(ctx, c)
	for {
		select {
		case <-ctx.Done():
			return gate.Update{}, ErrServiceUnavailable
		case update, ok := <-updates:
			if !ok {
				return gate.Update{}, ErrServiceUnavailable
			}
			if update.State.Settled() {
				c.Set(obstracing.GateStateKey, string(update.State))
				return update, nil
			}
		}
	}
}

func (s *Server) navigateTo(update gate.Update) string {
	cfg := s.gateConfig()
	for _, effect := range update.Effects {
		if effect.Navigate == gate.TargetPlanSelection {
			return cfg.PlanPath
		}
	}
	switch update.State {
	case gate.StateUnauthenticated:
		return cfg.LoginPath
	case gate.StateAuthenticatedRedirecting:
		return cfg.PlanPath
	}
	return ""
}

func (s *Server) gateResponse(update gate.Update) gateResponse {
	return gateResponse{
		State:      update.State,
		NavigateTo: s.navigateTo(update),
		Granted:    update.State == gate.StateAuthenticatedGranted,
	}
}

func (s *Server) GetGate(c *gin.Context) {
	update, err := s.resolveGate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.gateResponse(update))
}

// StreamGate pushes every gate state as a server-sent event. A navigation
// effect is pushed once as its own event.
func (s *Server) StreamGate(c *gin.Context) {
	ctx := c.Request.Context()
	stream, ok := openEventStream(c)
	if !ok {
		return
	}

	updates := s.watchGate(ctx, c)
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := stream.send("state", s.gateResponse(update)); err != nil {
				return
			}
			for _, effect := range update.Effects {
				if effect.Navigate != gate.TargetPlanSelection {
					continue
				}
				if err := stream.send("navigate", gin.H{"navigate_to": s.gateConfig().PlanPath}); err != nil {
					return
				}
			}
		case <-heartbeat.C:
			if err := stream.heartbeat(); err != nil {
				return
			}
		}
	}
}
