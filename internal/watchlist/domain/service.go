package domain

import "context"

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	Add(ctx context.Context, principalID string, title Title) (*Entry, error)
	Remove(ctx context.Context, principalID, titleID string) error
	List(ctx context.Context, principalID string) ([]Entry, error)
	// Observe streams the full saved set on every change. Absent principals
	// and read errors yield an empty set.
	Observe(ctx context.Context, principalID string) <-chan []Entry
}
