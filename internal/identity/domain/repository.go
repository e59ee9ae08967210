package domain

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	SignIn(ctx context.Context, id string, principal Principal, expiresAt, now time.Time) error
	SignOut(ctx context.Context, id string, now time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
