package access

import (
	"context"
	"strings"

	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SubscriptionLister lists a principal's subscription records newest first.
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context, principalID string) ([]billingdomain.SubscriptionRecord, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Billing billingdomain.Service
	Feed    changefeed.Feed
}

// Reader projects a principal's subscription records into live access verdicts.
type Reader struct {
	log    *zap.Logger
	source SubscriptionLister
	feed   changefeed.Feed
}

func NewReader(p Params) *Reader {
	return newReader(p.Log, p.Billing, p.Feed)
}

func newReader(log *zap.Logger, source SubscriptionLister, feed changefeed.Feed) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		log:    log.Named("access.reader"),
		source: source,
		feed:   feed,
	}
}

// Current reads the verdict once.
func (r *Reader) Current(ctx context.Context, principalID string) (billingdomain.EffectiveAccess, []billingdomain.SubscriptionRecord, error) {
	records, err := r.source.ListSubscriptions(ctx, principalID)
	if err != nil {
		return billingdomain.EffectiveAccess{}, nil, err
	}
	return billingdomain.Reduce(records), records, nil
}

// Observe emits loading, then one resolved verdict per change of the
// principal's subscription records. Read errors resolve to denied. An empty
// principal yields idle. The channel closes once ctx is done.
func (r *Reader) Observe(ctx context.Context, principalID string) <-chan Phase {
	principalID = strings.TrimSpace(principalID)
	out := make(chan Phase, 1)

	if principalID == "" {
		out <- Idle()
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out
	}

	out <- Loading(principalID)
	log := r.log.With(zap.String("principal_id", principalID))

	changes, err := r.feed.Subscribe(ctx, changefeed.SubscriptionsTopic(principalID))
	if err != nil {
		log.Error("subscription feed unavailable", zap.Error(err))
		changes = nil
	}

	go func() {
		defer close(out)

		for {
			phase := r.read(ctx, principalID, log)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- phase:
			case <-ctx.Done():
				return
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					<-ctx.Done()
					return
				}
			}
		}
	}()
	return out
}

func (r *Reader) read(ctx context.Context, principalID string, log *zap.Logger) Phase {
	records, err := r.source.ListSubscriptions(ctx, principalID)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("subscription read failed, denying access", zap.Error(err))
		}
		return Denied(principalID)
	}
	return Resolved(principalID, billingdomain.Reduce(records))
}
