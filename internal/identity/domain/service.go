package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	// SignIn verifies an identity-provider token and binds it to a browser session,
	// reusing currentToken's session when it is still valid.
	SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error)
	SignOut(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
	// Provider returns the session stream for rawToken; an empty token is always signed out.
	Provider(rawToken string) Provider
	// PurgeExpired deletes sessions whose expiry has passed.
	PurgeExpired(ctx context.Context) (int64, error)
}

type SignInRequest struct {
	IDToken      string
	CurrentToken string
}

type SignInResult struct {
	Principal Principal
	RawToken  string
	SessionID string
	ExpiresAt time.Time
}
