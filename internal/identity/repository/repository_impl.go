package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/streamgate/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) SignIn(ctx context.Context, id string, principal domain.Principal, expiresAt, now time.Time) error {
	var email *string
	if principal.Email != "" {
		email = &principal.Email
	}
	tx := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).Updates(map[string]any{
		"principal_id":  principal.ID,
		"email":         email,
		"roles":         domain.JoinRoles(principal.Roles),
		"expires_at":    expiresAt,
		"signed_out_at": nil,
		"updated_at":    now,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) SignOut(ctx context.Context, id string, now time.Time) error {
	tx := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND signed_out_at IS NULL", id).
		Updates(map[string]any{
			"signed_out_at": now,
			"updated_at":    now,
		})
	return tx.Error
}

func (r *repo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&domain.Session{})
	return tx.RowsAffected, tx.Error
}
