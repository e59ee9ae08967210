package modal

import (
	"sync"
	"time"

	"github.com/smallbiznis/streamgate/internal/catalog/domain"
)

// Snapshot is the modal state as shown to one browser session.
type Snapshot struct {
	Open    bool           `json:"open"`
	Current *domain.Detail `json:"current,omitempty"`
}

// Store holds the detail modal of one browser session. Close hides the modal
// but keeps Current so the closing animation can still render it.
type Store struct {
	mu       sync.RWMutex
	open     bool
	current  *domain.Detail
	lastSeen time.Time
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Open(detail *domain.Detail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.current = detail
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *Store) Current() *domain.Detail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Open: s.open, Current: s.current}
}

func (s *Store) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Store) idleSince(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen.Before(cutoff)
}
