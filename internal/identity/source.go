package identity

import (
	"context"
	"sync"

	"github.com/smallbiznis/streamgate/internal/identity/domain"
	"go.uber.org/zap"
)

// Observe streams the auth phase of provider: exactly one loading value, then
// resolved values whenever the principal ID changes. Repeated notifications for
// the same ID (token refresh) are collapsed. Provider errors are logged and
// never reported as signed out. The channel closes when ctx is done.
func Observe(ctx context.Context, provider domain.Provider, log *zap.Logger) <-chan domain.AuthPhase {
	if log == nil {
		log = zap.NewNop()
	}
	out := make(chan domain.AuthPhase, 1)
	out <- domain.Loading()

	box := newMailbox()
	unsubscribe, err := provider.Subscribe(ctx,
		func(p *domain.Principal) { box.put(p) },
		func(err error) { log.Warn("identity provider error", zap.Error(err)) },
	)
	if err != nil {
		log.Warn("identity subscribe failed", zap.Error(err))
		unsubscribe = func() {}
	}

	go func() {
		defer close(out)
		defer unsubscribe()

		var (
			emitted bool
			last    *domain.Principal
		)
		for {
			select {
			case <-ctx.Done():
				return
			case <-box.ready:
			}
			p := box.take()
			if emitted && domain.SamePrincipal(last, p) {
				continue
			}
			select {
			case out <- domain.Resolved(p):
				emitted, last = true, p
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// mailbox keeps only the latest principal so a slow reader never blocks the provider.
type mailbox struct {
	mu     sync.Mutex
	latest *domain.Principal
	ready  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(p *domain.Principal) {
	m.mu.Lock()
	m.latest = p
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() *domain.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}
