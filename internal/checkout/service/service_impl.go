package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamgate/internal/billing/adapters/stripe"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/checkout/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/observability/metrics"
	"github.com/smallbiznis/streamgate/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultAwaitTimeout = 20 * time.Second
	defaultPendingTTL   = 10 * time.Minute
	rateLimitEndpoint   = "checkout"
)

// Provider opens hosted sessions at the billing provider.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (stripe.Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (stripe.Session, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	Billing  billingdomain.Service
	Provider Provider
	Limiter  *ratelimit.CheckoutLimiter `optional:"true"`
	Feed     changefeed.Feed
	Clock    clock.Clock
	GenID    *snowflake.Node
	Config   config.Config
	Holder   *config.GateConfigHolder `optional:"true"`
	Metrics  *metrics.Metrics         `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	repo         domain.Repository
	billing      billingdomain.Service
	provider     Provider
	limiter      *ratelimit.CheckoutLimiter
	feed         changefeed.Feed
	clock        clock.Clock
	genID        *snowflake.Node
	holder       *config.GateConfigHolder
	metrics      *metrics.Metrics
	origin       string
	awaitTimeout time.Duration
	pendingTTL   time.Duration
}

func New(p Params) domain.Service {
	awaitTimeout := p.Config.Checkout.AwaitTimeout
	if awaitTimeout <= 0 {
		awaitTimeout = defaultAwaitTimeout
	}
	pendingTTL := p.Config.Checkout.PendingTTL
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	return &Service{
		log:          p.Log.Named("checkout.service"),
		repo:         p.Repo,
		billing:      p.Billing,
		provider:     p.Provider,
		limiter:      p.Limiter,
		feed:         p.Feed,
		clock:        p.Clock,
		genID:        p.GenID,
		holder:       p.Holder,
		metrics:      p.Metrics,
		origin:       strings.TrimRight(strings.TrimSpace(p.Config.PublicOrigin), "/"),
		awaitTimeout: awaitTimeout,
		pendingTTL:   pendingTTL,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, req domain.CreateCheckoutRequest) (*domain.Session, error) {
	principalID := strings.TrimSpace(req.PrincipalID)
	if principalID == "" {
		return nil, domain.ErrInvalidPrincipal
	}
	if err := s.allow(ctx, principalID); err != nil {
		return nil, err
	}

	price, err := s.billing.ResolvePrice(ctx, strings.TrimSpace(req.PlanID))
	if err != nil {
		return nil, err
	}

	params := stripe.CheckoutParams{
		PrincipalID:   principalID,
		PriceID:       price.ID,
		CustomerEmail: strings.TrimSpace(req.Email),
		SuccessURL:    s.origin,
		CancelURL:     s.origin + s.planPath(),
	}
	customer, err := s.billing.CustomerFor(ctx, principalID)
	switch {
	case err == nil:
		params.CustomerID = customer.ProviderCustomerID
		params.CustomerEmail = ""
	case !errors.Is(err, billingdomain.ErrCustomerNotFound):
		return nil, err
	}

	priceID := price.ID
	session, err := s.insert(ctx, principalID, domain.KindCheckout, &priceID)
	if err != nil {
		return nil, err
	}
	params.IdempotencyKey = "checkout_" + strconv.FormatInt(session.ID, 10)

	go s.process(context.WithoutCancel(ctx), session, func(ctx context.Context) (stripe.Session, string, error) {
		result, err := s.provider.CreateCheckoutSession(ctx, params)
		return result, domain.MessageNoCheckoutURL, err
	})

	return s.Await(ctx, session.ID)
}

// CreatePortal opens the billing portal. Non-http return URLs fall back to
// the account page.
func (s *Service) CreatePortal(ctx context.Context, req domain.CreatePortalRequest) (*domain.Session, error) {
	principalID := strings.TrimSpace(req.PrincipalID)
	if principalID == "" {
		return nil, domain.ErrInvalidPrincipal
	}
	if err := s.allow(ctx, principalID); err != nil {
		return nil, err
	}

	customer, err := s.billing.CustomerFor(ctx, principalID)
	if errors.Is(err, billingdomain.ErrCustomerNotFound) {
		return nil, domain.ErrNoBillingCustomer
	}
	if err != nil {
		return nil, err
	}

	returnURL := s.returnURL(req.ReturnURL)
	session, err := s.insert(ctx, principalID, domain.KindPortal, nil)
	if err != nil {
		return nil, err
	}

	go s.process(context.WithoutCancel(ctx), session, func(ctx context.Context) (stripe.Session, string, error) {
		result, err := s.provider.CreatePortalSession(ctx, customer.ProviderCustomerID, returnURL)
		return result, domain.MessageNoPortalURL, err
	})

	return s.Await(ctx, session.ID)
}

// Await blocks until the session is terminal or the await timeout elapses.
func (s *Service) Await(ctx context.Context, id int64) (*domain.Session, error) {
	changes, err := s.feed.Subscribe(ctx, changefeed.CheckoutTopic(strconv.FormatInt(id, 10)))
	if err != nil {
		return nil, err
	}
	deadline := s.clock.After(s.awaitTimeout)

	for {
		session, err := s.repo.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		switch session.Status {
		case domain.StatusReady:
			return session, nil
		case domain.StatusFailed:
			return session, domain.ErrSessionFailed
		case domain.StatusExpired:
			return session, domain.ErrSessionExpired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			s.log.Warn("checkout session still pending", zap.Int64("session_id", id))
			return session, domain.ErrAwaitTimeout
		case _, ok := <-changes:
			if !ok {
				return nil, ctx.Err()
			}
		}
	}
}

// ExpireStale moves sessions pending longer than the pending TTL to expired.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.repo.ExpirePending(ctx, now.Add(-s.pendingTTL), now)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.metrics.RecordCheckoutSession(ctx, "sweeper", string(domain.StatusExpired))
		s.publish(ctx, id)
	}
	if len(ids) > 0 {
		s.log.Info("expired pending checkout sessions", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

func (s *Service) allow(ctx context.Context, principalID string) error {
	result, err := s.limiter.Allow(ctx, principalID)
	if err != nil {
		s.log.Warn("checkout rate limit unavailable", zap.String("principal_id", principalID), zap.Error(err))
		return nil
	}
	if !result.Allowed {
		s.metrics.RecordRateLimitDenied(ctx, rateLimitEndpoint, "token_bucket")
		return domain.ErrRateLimited
	}
	s.metrics.RecordRateLimitAllowed(ctx, rateLimitEndpoint)
	return nil
}

func (s *Service) insert(ctx context.Context, principalID string, kind domain.Kind, priceID *string) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		ID:          s.genID.Generate().Int64(),
		PrincipalID: principalID,
		Kind:        kind,
		PriceID:     priceID,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, err
	}
	s.metrics.RecordCheckoutSession(ctx, string(kind), string(domain.StatusPending))
	return session, nil
}

type providerCall func(ctx context.Context) (stripe.Session, string, error)

func (s *Service) process(ctx context.Context, session *domain.Session, call providerCall) {
	result, missingURL, err := call(ctx)
	switch {
	case err != nil:
		s.fail(ctx, session, err.Error())
	case strings.TrimSpace(result.URL) == "":
		s.fail(ctx, session, missingURL)
	default:
		ok, err := s.repo.MarkReady(ctx, session.ID, result.URL, result.ID, s.now())
		if err != nil {
			s.log.Error("failed to mark checkout session ready", zap.Int64("session_id", session.ID), zap.Error(err))
			return
		}
		if ok {
			s.metrics.RecordCheckoutSession(ctx, string(session.Kind), string(domain.StatusReady))
		}
	}
	s.publish(ctx, session.ID)
}

func (s *Service) fail(ctx context.Context, session *domain.Session, message string) {
	s.log.Warn("billing provider session failed",
		zap.Int64("session_id", session.ID),
		zap.String("kind", string(session.Kind)),
		zap.String("error", message),
	)
	ok, err := s.repo.MarkFailed(ctx, session.ID, message, s.now())
	if err != nil {
		s.log.Error("failed to mark checkout session failed", zap.Int64("session_id", session.ID), zap.Error(err))
		return
	}
	if ok {
		s.metrics.RecordCheckoutSession(ctx, string(session.Kind), string(domain.StatusFailed))
	}
}

func (s *Service) publish(ctx context.Context, id int64) {
	topic := changefeed.CheckoutTopic(strconv.FormatInt(id, 10))
	if err := s.feed.Publish(ctx, changefeed.NewChange(topic, changefeed.KindTerminal)); err != nil {
		s.log.Warn("failed to publish checkout change", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Service) returnURL(raw string) string {
	fallback := s.origin + "/account"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return fallback
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fallback
	}
	return raw
}

func (s *Service) planPath() string {
	if s.holder != nil {
		if path := strings.TrimSpace(s.holder.Get().PlanPath); path != "" {
			return path
		}
	}
	return "/plan"
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
