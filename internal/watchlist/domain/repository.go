package domain

import "context"

type Repository interface {
	Upsert(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, principalID, titleID string) error
	List(ctx context.Context, principalID string) ([]Entry, error)
	Count(ctx context.Context, principalID string) (int64, error)
}
