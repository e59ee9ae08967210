package changefeed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresFeed uses LISTEN/NOTIFY on one channel and fans out locally by topic.
type PostgresFeed struct {
	db       *gorm.DB
	channel  string
	listener *pq.Listener
	hub      *Hub
	log      *zap.Logger
	done     chan struct{}
}

func NewPostgresFeed(db *gorm.DB, dsn, channel string, log *zap.Logger) (*PostgresFeed, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "streamgate_changes"
	}
	log = log.Named("changefeed.postgres")

	listener := pq.NewListener(dsn, time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("listener event", zap.Int("event", int(event)), zap.Error(err))
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	f := &PostgresFeed{
		db:       db,
		channel:  channel,
		listener: listener,
		hub:      NewHub(),
		log:      log,
		done:     make(chan struct{}),
	}
	go f.run()
	return f, nil
}

func (f *PostgresFeed) run() {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			// nil notification after a reconnect; changes may have been missed.
			if n == nil {
				f.log.Warn("listener reconnected")
				continue
			}
			var change Change
			if err := json.Unmarshal([]byte(n.Extra), &change); err != nil {
				f.log.Warn("dropping malformed change", zap.Error(err))
				continue
			}
			f.hub.dispatch(change)
		case <-ping.C:
			if err := f.listener.Ping(); err != nil {
				f.log.Warn("listener ping failed", zap.Error(err))
			}
		}
	}
}

func (f *PostgresFeed) Publish(ctx context.Context, change Change) error {
	if !validTopic(change.Topic) {
		return ErrInvalidTopic
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return f.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", f.channel, string(payload)).Error
}

func (f *PostgresFeed) Subscribe(ctx context.Context, topic string) (<-chan Change, error) {
	return f.hub.Subscribe(ctx, topic)
}

func (f *PostgresFeed) Close() error {
	close(f.done)
	return f.listener.Close()
}
