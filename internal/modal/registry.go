package modal

import (
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/streamgate/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const DefaultIdleTTL = 30 * time.Minute

// Registry keeps one Store per browser session and drops stores that have
// not been used for the idle TTL.
type Registry struct {
	log     *zap.Logger
	clock   clock.Clock
	idleTTL time.Duration

	mu     sync.Mutex
	stores map[string]*Store
}

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
}

func NewRegistry(p Params) *Registry {
	return newRegistry(p.Log, p.Clock, DefaultIdleTTL)
}

func newRegistry(log *zap.Logger, clk clock.Clock, idleTTL time.Duration) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:     log.Named("modal.registry"),
		clock:   clk,
		idleTTL: idleTTL,
		stores:  make(map[string]*Store),
	}
}

// For returns the store of sessionID, creating it on first use.
func (r *Registry) For(sessionID string) *Store {
	sessionID = strings.TrimSpace(sessionID)
	now := r.clock.Now()

	r.mu.Lock()
	store, ok := r.stores[sessionID]
	if !ok {
		store = NewStore()
		r.stores[sessionID] = store
	}
	r.mu.Unlock()

	store.touch(now)
	return store
}

func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.stores, strings.TrimSpace(sessionID))
	r.mu.Unlock()
}

// EvictIdle removes stores idle for longer than the idle TTL and returns how
// many were removed.
func (r *Registry) EvictIdle() int {
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, store := range r.stores {
		if store.idleSince(cutoff) {
			delete(r.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.log.Debug("evicted idle modal stores", zap.Int("count", evicted))
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

var Module = fx.Module("modal",
	fx.Provide(NewRegistry),
)
