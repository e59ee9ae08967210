package repository

import (
	"context"

	"github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

// Upsert overwrites the snapshot of an already saved title.
func (r *repo) Upsert(ctx context.Context, entry *domain.Entry) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO watchlist_items (
			principal_id, title_id, name, poster_path, backdrop_path, media_kind, overview, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (principal_id, title_id) DO UPDATE SET
			name = excluded.name,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			media_kind = excluded.media_kind,
			overview = excluded.overview,
			added_at = excluded.added_at`,
		entry.PrincipalID,
		entry.TitleID,
		entry.Name,
		entry.PosterPath,
		entry.BackdropPath,
		entry.MediaKind,
		entry.Overview,
		entry.AddedAt,
	).Error
}

func (r *repo) Delete(ctx context.Context, principalID, titleID string) error {
	return r.db.WithContext(ctx).
		Where("principal_id = ? AND title_id = ?", principalID, titleID).
		Delete(&domain.Entry{}).Error
}

func (r *repo) List(ctx context.Context, principalID string) ([]domain.Entry, error) {
	var items []domain.Entry
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("added_at DESC").
		Order("title_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Count(ctx context.Context, principalID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Entry{}).
		Where("principal_id = ?", principalID).
		Count(&count).Error
	return count, err
}
