package domain

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, session *Session) error
	Find(ctx context.Context, id int64) (*Session, error)
	// MarkReady and MarkFailed only move a pending session; they report false
	// when the session was already terminal.
	MarkReady(ctx context.Context, id int64, url, providerSessionID string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, message string, now time.Time) (bool, error)
	// ExpirePending moves sessions pending since before cutoff to expired and
	// returns their ids.
	ExpirePending(ctx context.Context, cutoff, now time.Time) ([]int64, error)
}
