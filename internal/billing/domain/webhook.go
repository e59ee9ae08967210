package domain

import (
	"context"
	"net/http"
	"time"
)

const (
	EventSubscriptionUpsert = "subscription.upsert"
	EventSubscriptionDelete = "subscription.delete"
	EventProductUpsert      = "product.upsert"
	EventProductDelete      = "product.delete"
	EventPriceUpsert        = "price.upsert"
	EventPriceDelete        = "price.delete"
	EventCheckoutCompleted  = "checkout.completed"
)

// WebhookEvent is a provider event normalized at the adapter boundary.
// Exactly one payload field is set, matching Type.
type WebhookEvent struct {
	Provider        string
	ProviderEventID string
	ProviderType    string
	Type            string
	OccurredAt      time.Time
	RawPayload      []byte

	Subscription *SubscriptionUpdate
	Product      *Product
	Price        *Price
	Checkout     *CheckoutCompleted
}

type SubscriptionUpdate struct {
	ID                 string
	ProviderCustomerID string
	// PrincipalID comes from subscription metadata when the checkout set it.
	PrincipalID       string
	Status            Status
	PriceID           string
	ProductID         string
	PlanName          string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	Created           time.Time
}

type CheckoutCompleted struct {
	SessionID          string
	PrincipalID        string
	ProviderCustomerID string
	Email              string
}

//go:generate mockgen -source=webhook.go -destination=../mocks/mock_webhook.go -package=mocks
type WebhookAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*WebhookEvent, error)
}
