package domain

import "context"

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	// CreateCheckout opens a hosted subscription checkout and waits for the
	// session to become terminal. A failed session is returned together with
	// ErrSessionFailed so callers can surface the provider message.
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*Session, error)
	CreatePortal(ctx context.Context, req CreatePortalRequest) (*Session, error)
	Await(ctx context.Context, id int64) (*Session, error)
	ExpireStale(ctx context.Context) (int, error)
}
