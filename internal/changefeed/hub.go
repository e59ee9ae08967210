package changefeed

import (
	"context"
	"strings"
	"sync"
)

const DefaultSubscriberBuffer = 16

// Hub is the in-process Feed. The redis and postgres feeds use it for local fan-out.
type Hub struct {
	mu               sync.RWMutex
	topics           map[string]*topic
	subscriberBuffer int
}

type topic struct {
	mu     sync.Mutex
	subs   map[uint64]chan Change
	nextID uint64
}

func NewHub() *Hub {
	return &Hub{
		topics:           make(map[string]*topic),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(_ context.Context, change Change) error {
	if h == nil {
		return ErrFeedClosed
	}
	if !validTopic(change.Topic) {
		return ErrInvalidTopic
	}
	h.dispatch(change)
	return nil
}

func (h *Hub) dispatch(change Change) {
	name := strings.TrimSpace(change.Topic)
	h.mu.RLock()
	current := h.topics[name]
	h.mu.RUnlock()
	if current == nil {
		return
	}

	current.mu.Lock()
	subs := make([]chan Change, 0, len(current.subs))
	for _, ch := range current.subs {
		subs = append(subs, ch)
	}
	current.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (h *Hub) Subscribe(ctx context.Context, name string) (<-chan Change, error) {
	if h == nil {
		return nil, ErrFeedClosed
	}
	if !validTopic(name) {
		return nil, ErrInvalidTopic
	}
	name = strings.TrimSpace(name)

	in := make(chan Change, h.subscriberBuffer)
	h.mu.Lock()
	current := h.topics[name]
	if current == nil {
		current = &topic{subs: make(map[uint64]chan Change)}
		h.topics[name] = current
	}
	current.mu.Lock()
	id := current.nextID
	current.nextID++
	current.subs[id] = in
	current.mu.Unlock()
	h.mu.Unlock()

	out := make(chan Change, h.subscriberBuffer)
	go func() {
		defer close(out)
		defer h.unsubscribe(name, id)
		for {
			select {
			case <-ctx.Done():
				return
			case change := <-in:
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Subscribers reports how many live subscriptions a topic has.
func (h *Hub) Subscribers(name string) int {
	h.mu.RLock()
	current := h.topics[strings.TrimSpace(name)]
	h.mu.RUnlock()
	if current == nil {
		return 0
	}
	current.mu.Lock()
	defer current.mu.Unlock()
	return len(current.subs)
}

func (h *Hub) unsubscribe(name string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.topics[name]
	if current == nil {
		return
	}
	current.mu.Lock()
	delete(current.subs, id)
	empty := len(current.subs) == 0
	current.mu.Unlock()
	if empty {
		delete(h.topics, name)
	}
}
