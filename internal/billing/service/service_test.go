package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/streamgate/internal/billing/adapters"
	"github.com/smallbiznis/streamgate/internal/billing/adapters/stripe"
	"github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/billing/repository"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/migration"
	"github.com/smallbiznis/streamgate/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type fixture struct {
	svc   *Service
	repo  domain.Repository
	clock *clock.FakeClock
	feed  *changefeed.Hub
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migration.EnsureSQLiteSchema(db); err != nil {
		t.Fatalf("schema: %v", err)
	}

	fake := clock.NewFakeClock(time.Now())
	hub := changefeed.NewHub()
	repo := repository.Provide(db)
	cfg := config.Config{Stripe: config.StripeConfig{WebhookSecret: webhookSecret}}
	svc := New(Params{
		Log:      zap.NewNop(),
		Repo:     repo,
		Adapters: adapters.NewRegistry(stripe.NewAdapter(cfg, fake)),
		Feed:     hub,
		Clock:    fake,
		GenID:    mustNode(t),
	}).(*Service)
	return &fixture{svc: svc, repo: repo, clock: fake, feed: hub}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func (f *fixture) deliver(t *testing.T, event map[string]any) (*domain.Event, error) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	ts := f.clock.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return f.svc.IngestWebhook(context.Background(), "stripe", payload, headers)
}

func subscriptionEvent(eventID, subID, status string, created int64, metadata map[string]any) map[string]any {
	return map[string]any{
		"id":   eventID,
		"type": "customer.subscription.updated",
		"data": map[string]any{"object": map[string]any{
			"id":       subID,
			"customer": "cus_1",
			"status":   status,
			"created":  created,
			"metadata": metadata,
			"items": map[string]any{"data": []any{map[string]any{
				"price": map[string]any{"id": "price_basic", "product": "prod_basic"},
			}}},
		}},
	}
}

func TestWebhookUpsertsSubscriptionAndPublishes(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := f.feed.Subscribe(ctx, changefeed.SubscriptionsTopic("user-1"))
	require.NoError(t, err)

	created := f.clock.Now().Add(-time.Hour).Unix()
	evt, err := f.deliver(t, subscriptionEvent("evt_1", "sub_1", "active", created, map[string]any{"principal_id": "user-1"}))
	require.NoError(t, err)
	require.NotNil(t, evt)
	assert.Equal(t, domain.EventOutcomeApplied, evt.Outcome)

	select {
	case change := <-changes:
		assert.Equal(t, changefeed.KindUpsert, change.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected subscription change")
	}

	records, err := f.svc.ListSubscriptions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, domain.Reduce(records).Granted)

	customer, err := f.svc.CustomerFor(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", customer.ProviderCustomerID)
}

func TestWebhookReplayIsRecordedOnce(t *testing.T) {
	f := setup(t)
	created := f.clock.Now().Unix()
	event := subscriptionEvent("evt_dup", "sub_1", "active", created, map[string]any{"principal_id": "user-1"})

	first, err := f.deliver(t, event)
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeApplied, first.Outcome)

	second, err := f.deliver(t, event)
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeDuplicate, second.Outcome)

	events, _, err := f.svc.ListEvents(context.Background(), pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestWebhookDeleteCancelsSubscription(t *testing.T) {
	f := setup(t)
	created := f.clock.Now().Unix()
	_, err := f.deliver(t, subscriptionEvent("evt_a", "sub_1", "active", created, map[string]any{"principal_id": "user-1"}))
	require.NoError(t, err)

	deleted := subscriptionEvent("evt_b", "sub_1", "active", created, nil)
	deleted["type"] = "customer.subscription.deleted"
	evt, err := f.deliver(t, deleted)
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeApplied, evt.Outcome)

	records, err := f.svc.ListSubscriptions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusCanceled, records[0].Status)
	assert.False(t, domain.Reduce(records).Granted)
}

func TestWebhookWithoutPrincipalIsUnresolved(t *testing.T) {
	f := setup(t)
	evt, err := f.deliver(t, subscriptionEvent("evt_x", "sub_x", "active", f.clock.Now().Unix(), nil))
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeUnresolved, evt.Outcome)
}

func TestCheckoutCompletionLinksCustomer(t *testing.T) {
	f := setup(t)
	_, err := f.deliver(t, map[string]any{
		"id":   "evt_cs",
		"type": "checkout.session.completed",
		"data": map[string]any{"object": map[string]any{
			"id":                  "cs_1",
			"client_reference_id": "user-7",
			"customer":            "cus_7",
		}},
	})
	require.NoError(t, err)

	evt, err := f.deliver(t, map[string]any{
		"id":   "evt_sub7",
		"type": "customer.subscription.created",
		"data": map[string]any{"object": map[string]any{
			"id":       "sub_7",
			"customer": "cus_7",
			"status":   "trialing",
			"created":  f.clock.Now().Unix(),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeApplied, evt.Outcome)

	records, err := f.svc.ListSubscriptions(context.Background(), "user-7")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sub_7", records[0].ID)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := setup(t)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1,v1=deadbeef")
	_, err := f.svc.IngestWebhook(context.Background(), "stripe", []byte(`{"id":"evt"}`), headers)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = f.svc.IngestWebhook(context.Background(), "paypal", []byte(`{}`), headers)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestListSubscriptionsOrdersNewestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := f.clock.Now()
	for i, status := range []domain.Status{domain.StatusActive, domain.StatusTrialing, domain.StatusCanceled} {
		require.NoError(t, f.repo.UpsertSubscription(ctx, &domain.SubscriptionRecord{
			ID:          fmt.Sprintf("sub_%d", i),
			PrincipalID: "user-1",
			Status:      status,
			Created:     base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base,
		}))
	}

	records, err := f.svc.ListSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "sub_2", records[0].ID)

	access := domain.Reduce(records)
	require.NotNil(t, access.Record)
	assert.Equal(t, "sub_1", access.Record.ID)
}

func seedPlan(t *testing.T, f *fixture, id, name string, amount int64, metadata map[string]any) {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now()
	require.NoError(t, f.repo.UpsertProduct(ctx, &domain.Product{
		ID: id, Name: name, Active: true, Metadata: metadata, CreatedAt: now, UpdatedAt: now,
	}))
	if amount < 0 {
		return
	}
	interval := "month"
	require.NoError(t, f.repo.UpsertPrice(ctx, &domain.Price{
		ID: "price_" + id, ProductID: id, Active: true, Currency: "usd",
		UnitAmount: &amount, Interval: &interval, IntervalCount: 1, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestListPlansOrderingAndDefault(t *testing.T) {
	f := setup(t)
	seedPlan(t, f, "prod_premium", "Premium", 2299, map[string]any{"sort": "3", "quality": "Best"})
	seedPlan(t, f, "prod_basic", "Basic", 999, map[string]any{"sort": "1"})
	seedPlan(t, f, "prod_standard", "Standard", 1549, map[string]any{"videoQuality": "Better"})
	seedPlan(t, f, "prod_ghost", "Ghost", -1, nil)

	list, err := f.svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Plans, 4)
	assert.Empty(t, list.Notice)

	assert.Equal(t, "prod_basic", list.Plans[0].ID)
	assert.Equal(t, "prod_premium", list.Plans[1].ID)
	assert.Equal(t, "prod_ghost", list.Plans[2].ID)
	assert.Equal(t, "prod_standard", list.Plans[3].ID)

	assert.Equal(t, "$9.99 / month", list.Plans[0].PriceLabel)
	assert.Equal(t, "Price not found", list.Plans[2].PriceLabel)
	assert.False(t, list.Plans[2].Available)
	assert.True(t, list.Plans[1].DefaultSelected)
	assert.Equal(t, "Best", list.Plans[1].Features.Quality)
	assert.Equal(t, "Better", list.Plans[3].Features.Quality)
	assert.Equal(t, "premium", list.Plans[1].Slug)
}

func TestListPlansFractionalSortAndMonthlyLabel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedPlan(t, f, "prod_half", "Half", 1200, map[string]any{"sort": "2.5"})
	seedPlan(t, f, "prod_two", "Two", 1100, map[string]any{"sort": "2.0"})
	seedPlan(t, f, "prod_numeric", "Numeric", 1000, map[string]any{"sort": 1.5})
	seedPlan(t, f, "prod_junk", "Junk", 900, map[string]any{"sort": "first"})

	now := f.clock.Now()
	amount := int64(9900)
	yearly := "year"
	require.NoError(t, f.repo.UpsertProduct(ctx, &domain.Product{
		ID: "prod_annual", Name: "Annual", Active: true, Metadata: map[string]any{"sort": "3"}, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, f.repo.UpsertPrice(ctx, &domain.Price{
		ID: "price_prod_annual", ProductID: "prod_annual", Active: true, Currency: "usd",
		UnitAmount: &amount, Interval: &yearly, IntervalCount: 1, CreatedAt: now, UpdatedAt: now,
	}))

	list, err := f.svc.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, list.Plans, 5)

	ids := make([]string, 0, len(list.Plans))
	for _, plan := range list.Plans {
		ids = append(ids, plan.ID)
	}
	assert.Equal(t, []string{"prod_numeric", "prod_two", "prod_half", "prod_annual", "prod_junk"}, ids)
	assert.Equal(t, "$99.00 / month", list.Plans[3].PriceLabel)
}

func TestListPlansEmpty(t *testing.T) {
	f := setup(t)
	list, err := f.svc.ListPlans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list.Plans)
	assert.Equal(t, domain.NoticeNoPlans, list.Notice)
}

func TestResolvePrice(t *testing.T) {
	f := setup(t)
	seedPlan(t, f, "prod_basic", "Basic", 999, nil)
	seedPlan(t, f, "prod_ghost", "Ghost", -1, nil)
	ctx := context.Background()

	price, err := f.svc.ResolvePrice(ctx, "prod_basic")
	require.NoError(t, err)
	assert.Equal(t, "price_prod_basic", price.ID)

	price, err = f.svc.ResolvePrice(ctx, "price_prod_basic")
	require.NoError(t, err)
	assert.Equal(t, "prod_basic", price.ProductID)

	_, err = f.svc.ResolvePrice(ctx, "prod_ghost")
	assert.ErrorIs(t, err, domain.ErrPlanUnavailable)

	_, err = f.svc.ResolvePrice(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestAccountSummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	summary, err := f.svc.Account(ctx, "user-1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "—", summary.PlanName)
	assert.Equal(t, "--", summary.RenewsOn)
	assert.False(t, summary.Granted)

	seedPlan(t, f, "prod_basic", "Basic", 999, nil)
	productID := "prod_basic"
	periodEnd := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.repo.UpsertSubscription(ctx, &domain.SubscriptionRecord{
		ID:               "sub_1",
		PrincipalID:      "user-1",
		Status:           domain.StatusActive,
		ProductID:        &productID,
		CurrentPeriodEnd: &periodEnd,
		Created:          f.clock.Now(),
		UpdatedAt:        f.clock.Now(),
	}))

	summary, err = f.svc.Account(ctx, "user-1", "a@example.com")
	require.NoError(t, err)
	assert.True(t, summary.Granted)
	assert.Equal(t, "Basic", summary.PlanName)
	assert.Equal(t, "March 4, 2026", summary.RenewsOn)
	assert.Equal(t, "active", summary.Status)
	assert.NotNil(t, summary.MemberSince)
}

func TestListEventsPaginates(t *testing.T) {
	f := setup(t)
	for i := 0; i < 3; i++ {
		_, err := f.deliver(t, subscriptionEvent(fmt.Sprintf("evt_%d", i), "sub_1", "active", f.clock.Now().Unix(), map[string]any{"principal_id": "user-1"}))
		require.NoError(t, err)
	}

	page, info, err := f.svc.ListEvents(context.Background(), pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)

	rest, info, err := f.svc.ListEvents(context.Background(), pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.False(t, info.HasMore)
	assert.Less(t, rest[0].ID, page[1].ID)
}
