package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subs, err := hub.Subscribe(ctx, SubscriptionsTopic("user_1"))
	require.NoError(t, err)
	other, err := hub.Subscribe(ctx, SubscriptionsTopic("user_2"))
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, NewChange(SubscriptionsTopic("user_1"), KindUpsert)))

	select {
	case change := <-subs:
		assert.Equal(t, "subscriptions:user_1", change.Topic)
		assert.NotEmpty(t, change.ID)
	case <-time.After(time.Second):
		t.Fatal("expected change")
	}
	select {
	case <-other:
		t.Fatal("unexpected change for other principal")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubClosesOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Subscribe(ctx, ProductsTopic)
	require.NoError(t, err)
	require.Equal(t, 1, hub.Subscribers(ProductsTopic))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return hub.Subscribers(ProductsTopic) == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubRejectsEmptyTopic(t *testing.T) {
	hub := NewHub()
	_, err := hub.Subscribe(context.Background(), SubscriptionsTopic(""))
	assert.ErrorIs(t, err, ErrInvalidTopic)
	assert.ErrorIs(t, hub.Publish(context.Background(), Change{Topic: " "}), ErrInvalidTopic)
}

func TestHubNeverBlocksPublisher(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := hub.Subscribe(ctx, WatchlistTopic("u"))
	require.NoError(t, err)

	for i := 0; i < DefaultSubscriberBuffer*4; i++ {
		require.NoError(t, hub.Publish(ctx, NewChange(WatchlistTopic("u"), KindUpsert)))
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected at least one pending change")
	}
}
