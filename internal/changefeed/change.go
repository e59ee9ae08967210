package changefeed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidTopic = errors.New("invalid_topic")
	ErrFeedClosed   = errors.New("feed_closed")
)

const (
	KindUpsert   = "upsert"
	KindDelete   = "delete"
	KindSignIn   = "sign_in"
	KindSignOut  = "sign_out"
	KindTerminal = "terminal"
)

// Change notifies subscribers that rows behind Topic were written.
// Subscribers re-read their projection; the change carries no row data.
type Change struct {
	ID    string    `json:"id"`
	Topic string    `json:"topic"`
	Kind  string    `json:"kind"`
	At    time.Time `json:"at"`
}

// Feed fans out change notifications to every subscriber of a topic.
type Feed interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe returns a channel closed when ctx is done. Notifications may be
	// coalesced under backpressure but a subscriber with a full buffer always
	// has at least one pending notification.
	Subscribe(ctx context.Context, topic string) (<-chan Change, error)
}

// NewChange stamps a change with a ULID and the current time.
func NewChange(topic, kind string) Change {
	now := time.Now().UTC()
	return Change{
		ID:    ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Topic: topic,
		Kind:  kind,
		At:    now,
	}
}

func SubscriptionsTopic(principalID string) string {
	return "subscriptions:" + strings.TrimSpace(principalID)
}

const ProductsTopic = "products"

func WatchlistTopic(principalID string) string {
	return "watchlist:" + strings.TrimSpace(principalID)
}

func IdentityTopic(sessionID string) string {
	return "identity:" + strings.TrimSpace(sessionID)
}

func CheckoutTopic(sessionID string) string {
	return "checkout:" + strings.TrimSpace(sessionID)
}

func validTopic(topic string) bool {
	topic = strings.TrimSpace(topic)
	return topic != "" && !strings.HasSuffix(topic, ":")
}
