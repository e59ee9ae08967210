package changefeed

import (
	"context"
	"encoding/json"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed publishes changes on redis pub/sub so every instance observes them.
type RedisFeed struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisFeed(client *redis.Client, prefix string, log *zap.Logger) *RedisFeed {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "streamgate_changes"
	}
	return &RedisFeed{client: client, prefix: prefix, log: log.Named("changefeed.redis")}
}

func (f *RedisFeed) channel(topic string) string {
	return f.prefix + ":" + strings.TrimSpace(topic)
}

func (f *RedisFeed) Publish(ctx context.Context, change Change) error {
	if !validTopic(change.Topic) {
		return ErrInvalidTopic
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel(change.Topic), payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (<-chan Change, error) {
	if !validTopic(topic) {
		return nil, ErrInvalidTopic
	}
	pubsub := f.client.Subscribe(ctx, f.channel(topic))
	// Receive blocks until the subscription is confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan Change, DefaultSubscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					f.log.Warn("dropping malformed change", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- change:
				default:
				}
			}
		}
	}()
	return out, nil
}
