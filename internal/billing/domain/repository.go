package domain

import (
	"context"
	"time"
)

type Repository interface {
	ListSubscriptions(ctx context.Context, principalID string) ([]SubscriptionRecord, error)
	UpsertSubscription(ctx context.Context, record *SubscriptionRecord) error

	ListActiveProducts(ctx context.Context) ([]Product, error)
	ListActivePrices(ctx context.Context, productIDs []string) ([]Price, error)
	FindProduct(ctx context.Context, id string) (*Product, error)
	FindPrice(ctx context.Context, id string) (*Price, error)
	UpsertProduct(ctx context.Context, product *Product) error
	UpsertPrice(ctx context.Context, price *Price) error
	DeactivateProduct(ctx context.Context, id string, now time.Time) error
	DeactivatePrice(ctx context.Context, id string, now time.Time) error

	FindCustomerByPrincipal(ctx context.Context, principalID string) (*Customer, error)
	FindCustomerByProviderID(ctx context.Context, providerCustomerID string) (*Customer, error)
	UpsertCustomer(ctx context.Context, customer *Customer) error

	// InsertEvent reports false when the provider event was already recorded.
	InsertEvent(ctx context.Context, event *Event) (bool, error)
	UpdateEventOutcome(ctx context.Context, id int64, outcome string) error
	ListEvents(ctx context.Context, req ListEventsRequest) ([]Event, error)
}

type ListEventsRequest struct {
	Limit    int
	BeforeID int64
}
