package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/streamgate/internal/checkout/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO checkout_sessions (
			id, principal_id, kind, price_id, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.PrincipalID,
		session.Kind,
		session.PriceID,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	).Error
}

func (r *repo) Find(ctx context.Context, id int64) (*domain.Session, error) {
	var item domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) MarkReady(ctx context.Context, id int64, url, providerSessionID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE checkout_sessions
		SET status = ?, url = ?, provider_session_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.StatusReady, url, providerSessionID, now, id, domain.StatusPending,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) MarkFailed(ctx context.Context, id int64, message string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE checkout_sessions
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.StatusFailed, message, now, id, domain.StatusPending,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) ExpirePending(ctx context.Context, cutoff, now time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Session{}).
			Where("status = ? AND created_at < ?", domain.StatusPending, cutoff).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Exec(
			`UPDATE checkout_sessions SET status = ?, updated_at = ?
			WHERE id IN ? AND status = ?`,
			domain.StatusExpired, now, ids, domain.StatusPending,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
