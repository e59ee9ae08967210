package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: watchlist_items.movie_id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, "streamgate.db", sqlitePath(""))
	assert.Equal(t, "local.db", sqlitePath("local"))
	assert.Equal(t, "file:x?mode=memory", sqlitePath("file:x?mode=memory"))
}
