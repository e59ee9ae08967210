package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
)

func newTestAdapter(secret string, now time.Time) *Adapter {
	return &Adapter{webhookSecret: secret, tolerance: DefaultTolerance, clock: clock.NewFakeClock(now)}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"product.updated","data":{"object":{}}}`)
	now := time.Now()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Unix()))

	adapter := newTestAdapter(secret, now)
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, now.Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123"}`)
	now := time.Now()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Add(-6*time.Minute).Unix()))

	adapter := newTestAdapter(secret, now)
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected stale signature to be rejected, got %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Add(-4*time.Minute).Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected signature within tolerance, got %v", err)
	}
}

func TestVerifyWithoutSecretFails(t *testing.T) {
	payload := []byte(`{}`)
	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("", payload, time.Now().Unix()))
	adapter := newTestAdapter("", time.Now())
	if err := adapter.Verify(context.Background(), payload, reqHeader); err == nil {
		t.Fatalf("expected error without webhook secret")
	}
}

func TestParseEvents(t *testing.T) {
	created := time.Now().UTC().Unix()
	periodEnd := created + 30*24*3600
	adapter := newTestAdapter("whsec", time.Now())

	tests := []struct {
		name     string
		event    any
		wantType string
		check    func(t *testing.T, evt *domain.WebhookEvent)
	}{{
		name: "subscription_updated",
		event: map[string]any{
			"id":      "evt_sub",
			"type":    "customer.subscription.updated",
			"created": created,
			"data": map[string]any{"object": map[string]any{
				"id":                   "sub_1",
				"customer":             "cus_1",
				"status":               "trialing",
				"created":              created,
				"cancel_at_period_end": true,
				"metadata":             map[string]any{"principal_id": "user-1"},
				"items": map[string]any{"data": []any{map[string]any{
					"current_period_end": periodEnd,
					"price": map[string]any{
						"id":       "price_1",
						"product":  map[string]any{"id": "prod_1", "name": "Premium"},
						"nickname": "monthly",
					},
				}}},
			}},
		},
		wantType: domain.EventSubscriptionUpsert,
		check: func(t *testing.T, evt *domain.WebhookEvent) {
			sub := evt.Subscription
			if sub == nil || sub.ID != "sub_1" || sub.PrincipalID != "user-1" || sub.ProviderCustomerID != "cus_1" {
				t.Fatalf("unexpected subscription %+v", sub)
			}
			if sub.Status != domain.StatusTrialing || sub.PriceID != "price_1" || sub.ProductID != "prod_1" || sub.PlanName != "Premium" {
				t.Fatalf("unexpected plan fields %+v", sub)
			}
			if sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.Unix() != periodEnd {
				t.Fatalf("expected period end %d, got %v", periodEnd, sub.CurrentPeriodEnd)
			}
		},
	}, {
		name: "subscription_deleted",
		event: map[string]any{
			"id":   "evt_del",
			"type": "customer.subscription.deleted",
			"data": map[string]any{"object": map[string]any{
				"id":       "sub_1",
				"customer": "cus_1",
				"status":   "active",
				"plan":     map[string]any{"id": "price_1", "product": "prod_1"},
			}},
		},
		wantType: domain.EventSubscriptionDelete,
		check: func(t *testing.T, evt *domain.WebhookEvent) {
			if evt.Subscription.Status != domain.StatusCanceled {
				t.Fatalf("expected canceled status, got %s", evt.Subscription.Status)
			}
			if evt.Subscription.ProductID != "prod_1" {
				t.Fatalf("expected product from plan, got %q", evt.Subscription.ProductID)
			}
		},
	}, {
		name: "price_created",
		event: map[string]any{
			"id":   "evt_price",
			"type": "price.created",
			"data": map[string]any{"object": map[string]any{
				"id":          "price_2",
				"product":     "prod_1",
				"active":      true,
				"currency":    "USD",
				"unit_amount": 1599,
				"recurring":   map[string]any{"interval": "month", "interval_count": 1},
			}},
		},
		wantType: domain.EventPriceUpsert,
		check: func(t *testing.T, evt *domain.WebhookEvent) {
			price := evt.Price
			if price.Currency != "usd" || price.UnitAmount == nil || *price.UnitAmount != 1599 {
				t.Fatalf("unexpected price %+v", price)
			}
			if price.Interval == nil || *price.Interval != "month" {
				t.Fatalf("expected monthly interval")
			}
		},
	}, {
		name: "checkout_completed",
		event: map[string]any{
			"id":   "evt_cs",
			"type": "checkout.session.completed",
			"data": map[string]any{"object": map[string]any{
				"id":                  "cs_1",
				"client_reference_id": "user-9",
				"customer":            "cus_9",
				"customer_details":    map[string]any{"email": "nine@example.com"},
			}},
		},
		wantType: domain.EventCheckoutCompleted,
		check: func(t *testing.T, evt *domain.WebhookEvent) {
			if evt.Checkout.PrincipalID != "user-9" || evt.Checkout.ProviderCustomerID != "cus_9" || evt.Checkout.Email != "nine@example.com" {
				t.Fatalf("unexpected checkout %+v", evt.Checkout)
			}
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}
			evt, err := adapter.Parse(context.Background(), payload)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if evt.Type != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, evt.Type)
			}
			tt.check(t, evt)
		})
	}
}

func TestParseIgnoresUnknownEvents(t *testing.T) {
	adapter := newTestAdapter("whsec", time.Now())
	_, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`))
	if !errors.Is(err, domain.ErrEventIgnored) {
		t.Fatalf("expected ignored event, got %v", err)
	}

	_, err = adapter.Parse(context.Background(), []byte(`not json`))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
