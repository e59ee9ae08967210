package gate

import (
	"context"
	"time"

	"github.com/smallbiznis/streamgate/internal/access"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	"github.com/smallbiznis/streamgate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultResolveTimeout = 10 * time.Second

// AccessObserver opens a live access verdict stream for one principal.
type AccessObserver interface {
	Observe(ctx context.Context, principalID string) <-chan access.Phase
}

// Update is emitted on every gate state change.
type Update struct {
	State     State
	Effects   []Effect
	Principal *identitydomain.Principal
	Access    billingdomain.EffectiveAccess
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Reader  *access.Reader
	Holder  *config.GateConfigHolder
	Clock   clock.Clock
	Metrics *metrics.GateMetrics `optional:"true"`
}

type Runner struct {
	log     *zap.Logger
	reader  AccessObserver
	holder  *config.GateConfigHolder
	clock   clock.Clock
	metrics *metrics.GateMetrics
}

func NewRunner(p Params) *Runner {
	m := p.Metrics
	if m == nil {
		m = metrics.Gate()
	}
	return &Runner{
		log:     p.Log.Named("gate.runner"),
		reader:  p.Reader,
		holder:  p.Holder,
		clock:   p.Clock,
		metrics: m,
	}
}

func (r *Runner) resolveTimeout() time.Duration {
	if r.holder == nil {
		return defaultResolveTimeout
	}
	if timeout := r.holder.ResolveTimeout(); timeout > 0 {
		return timeout
	}
	return defaultResolveTimeout
}

// Run drives one gate session from auth phases until ctx is done or auth
// closes. The first update is always Resolving. The returned channel closes
// when the session ends.
func (r *Runner) Run(ctx context.Context, auth <-chan identitydomain.AuthPhase) <-chan Update {
	out := make(chan Update, 1)
	go r.loop(ctx, auth, out)
	return out
}

type session struct {
	machine *Machine
	inputs  Inputs

	principalID  string
	accessCancel context.CancelFunc
	accessCh     <-chan access.Phase
	accessTimer  <-chan time.Time
	authTimer    <-chan time.Time
}

func (s *session) stopAccess() {
	if s.accessCancel != nil {
		s.accessCancel()
	}
	s.accessCancel = nil
	s.accessCh = nil
	s.accessTimer = nil
}

func (r *Runner) loop(ctx context.Context, auth <-chan identitydomain.AuthPhase, out chan<- Update) {
	defer close(out)
	r.metrics.GateStarted()
	defer r.metrics.GateStopped()

	s := &session{
		machine:   NewMachine(),
		inputs:    Inputs{Auth: identitydomain.Loading(), Access: access.Idle()},
		authTimer: r.clock.After(r.resolveTimeout()),
	}
	defer s.stopAccess()

	if !r.send(ctx, out, Update{State: s.machine.State()}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case phase, ok := <-auth:
			if !ok {
				return
			}
			r.onAuth(ctx, s, phase)

		case phase, ok := <-s.accessCh:
			if !ok {
				s.accessCh = nil
				continue
			}
			if !phase.For(s.principalID) {
				continue
			}
			s.inputs.Access = phase
			if phase.IsResolved() {
				s.accessTimer = nil
			}

		case <-s.accessTimer:
			s.accessTimer = nil
			if s.inputs.Access.IsLoading() && s.inputs.Access.For(s.principalID) {
				r.log.Warn("access verdict timed out, denying", zap.String("principal_id", s.principalID))
				r.metrics.RecordFailClosed(metrics.FailClosedSourceAccessTimeout)
				s.inputs.Access = access.Denied(s.principalID)
			}

		case <-s.authTimer:
			s.authTimer = nil
			if s.inputs.Auth.IsLoading() {
				r.log.Warn("identity did not resolve in time")
				r.metrics.RecordFailClosed(metrics.FailClosedSourceAuthTimeout)
				s.inputs.AuthTimedOut = true
			}
		}

		prev := s.machine.State()
		next, effects := s.machine.Step(s.inputs)
		if next == prev && len(effects) == 0 {
			continue
		}
		r.metrics.RecordTransition(string(prev), string(next))
		for _, effect := range effects {
			r.metrics.RecordNavigation(string(effect.Navigate))
		}
		update := Update{
			State:     next,
			Effects:   effects,
			Principal: s.inputs.Auth.Principal(),
		}
		if s.inputs.Access.For(s.principalID) {
			update.Access = s.inputs.Access.Access()
		}
		if !r.send(ctx, out, update) {
			return
		}
	}
}

func (r *Runner) onAuth(ctx context.Context, s *session, phase identitydomain.AuthPhase) {
	s.inputs.Auth = phase
	if !phase.IsLoading() {
		s.authTimer = nil
		s.inputs.AuthTimedOut = false
	}

	principalID := phase.PrincipalID()
	if principalID == s.principalID && s.accessCh != nil {
		return
	}

	s.stopAccess()
	s.principalID = principalID
	s.inputs.Access = access.Idle()
	if principalID == "" {
		return
	}

	accessCtx, cancel := context.WithCancel(ctx)
	s.accessCancel = cancel
	s.accessCh = r.reader.Observe(accessCtx, principalID)
	s.inputs.Access = access.Loading(principalID)
	s.accessTimer = r.clock.After(r.resolveTimeout())
}

func (r *Runner) send(ctx context.Context, out chan<- Update, update Update) bool {
	select {
	case out <- update:
		return true
	case <-ctx.Done():
		return false
	}
}
