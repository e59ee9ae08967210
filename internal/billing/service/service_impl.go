package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamgate/internal/billing/adapters"
	"github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/observability/metrics"
	"github.com/smallbiznis/streamgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	accountDateLayout = "January 2, 2006"
	missingPlanName   = "—"
	missingDate       = "--"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	Adapters *adapters.Registry
	Feed     changefeed.Feed
	Clock    clock.Clock
	GenID    *snowflake.Node
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	adapters *adapters.Registry
	feed     changefeed.Feed
	clock    clock.Clock
	genID    *snowflake.Node
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("billing.service"),
		repo:     p.Repo,
		adapters: p.Adapters,
		feed:     p.Feed,
		clock:    p.Clock,
		genID:    p.GenID,
		metrics:  p.Metrics,
	}
}

func (s *Service) ListSubscriptions(ctx context.Context, principalID string) ([]domain.SubscriptionRecord, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, nil
	}
	return s.repo.ListSubscriptions(ctx, principalID)
}

func (s *Service) CustomerFor(ctx context.Context, principalID string) (*domain.Customer, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, domain.ErrCustomerNotFound
	}
	return s.repo.FindCustomerByPrincipal(ctx, principalID)
}

// Account summarizes the principal's membership. The shown record is the
// first granting one, else the newest record.
func (s *Service) Account(ctx context.Context, principalID, email string) (domain.AccountSummary, error) {
	summary := domain.AccountSummary{
		PrincipalID: principalID,
		Email:       email,
		PlanName:    missingPlanName,
		RenewsOn:    missingDate,
	}

	records, err := s.ListSubscriptions(ctx, principalID)
	if err != nil {
		return summary, err
	}
	if len(records) == 0 {
		return summary, nil
	}

	access := domain.Reduce(records)
	selected := access.Record
	if selected == nil {
		selected = &records[0]
	}
	summary.Granted = access.Granted
	summary.SubscriptionID = selected.ID
	summary.Status = string(selected.Status)
	summary.PlanName = s.planName(ctx, selected)
	if selected.CurrentPeriodEnd != nil {
		summary.RenewsOn = selected.CurrentPeriodEnd.Format(accountDateLayout)
	}
	if !selected.Created.IsZero() {
		since := selected.Created.Format(accountDateLayout)
		summary.MemberSince = &since
	}
	return summary, nil
}

func (s *Service) planName(ctx context.Context, record *domain.SubscriptionRecord) string {
	if name := deref(record.PlanName); name != "" {
		return name
	}
	if id := deref(record.ProductID); id != "" {
		product, err := s.repo.FindProduct(ctx, id)
		if err != nil {
			s.log.Warn("failed to load product for plan name", zap.String("product_id", id), zap.Error(err))
		} else if product != nil && strings.TrimSpace(product.Name) != "" {
			return strings.TrimSpace(product.Name)
		}
	}
	if id := deref(record.PriceID); id != "" {
		price, err := s.repo.FindPrice(ctx, id)
		if err != nil {
			s.log.Warn("failed to load price for plan name", zap.String("price_id", id), zap.Error(err))
		} else if price != nil {
			if nickname := deref(price.Nickname); nickname != "" {
				return nickname
			}
		}
	}
	return missingPlanName
}

func (s *Service) ListEvents(ctx context.Context, page pagination.Pagination) ([]domain.Event, pagination.PageInfo, error) {
	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	req := domain.ListEventsRequest{Limit: page.Limit() + 1}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.PageInfo{}, pagination.ErrInvalidPageToken
		}
		req.BeforeID = id.Int64()
	}

	items, err := s.repo.ListEvents(ctx, req)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	items, info := pagination.Page(items, page.Limit(), func(e domain.Event) string {
		return snowflake.ID(e.ID).String()
	})
	return items, info, nil
}

func (s *Service) publish(ctx context.Context, topic, kind string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, changefeed.NewChange(topic, kind)); err != nil {
		s.log.Warn("failed to publish billing change", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrCustomerNotFound)
}
