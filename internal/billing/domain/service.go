package domain

import (
	"context"
	"net/http"

	"github.com/smallbiznis/streamgate/pkg/db/pagination"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	ListSubscriptions(ctx context.Context, principalID string) ([]SubscriptionRecord, error)
	ListPlans(ctx context.Context) (PlanList, error)
	// ResolvePrice accepts a product (plan) id or a price id.
	ResolvePrice(ctx context.Context, planOrPriceID string) (*Price, error)
	Account(ctx context.Context, principalID, email string) (AccountSummary, error)
	CustomerFor(ctx context.Context, principalID string) (*Customer, error)
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*Event, error)
	ListEvents(ctx context.Context, page pagination.Pagination) ([]Event, pagination.PageInfo, error)
}
