package domain

import (
	"context"

	"github.com/smallbiznis/streamgate/internal/config"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	Row(ctx context.Context, category Category) ([]Title, error)
	// Home fetches configured rows concurrently. A failing row is returned empty.
	Home(ctx context.Context, rows []config.RowConfig, myList []Title) (Home, error)
	Detail(ctx context.Context, mediaKind, id string) (*Detail, error)
	// Warm refreshes every category in the cache.
	Warm(ctx context.Context) error
}
