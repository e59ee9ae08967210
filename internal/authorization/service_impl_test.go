package authorization

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	operator := &identitydomain.Principal{ID: "ops_1", Roles: []string{"operator"}}
	viewer := &identitydomain.Principal{ID: "view_1", Roles: []string{"Viewer"}}
	member := &identitydomain.Principal{ID: "user_1"}

	assert.NoError(t, svc.Authorize(ctx, operator, ObjectAccess, ActionAccessView))
	assert.NoError(t, svc.Authorize(ctx, operator, ObjectSubscription, ActionSubscriptionView))
	assert.NoError(t, svc.Authorize(ctx, viewer, ObjectAccess, ActionAccessView))
	assert.ErrorIs(t, svc.Authorize(ctx, viewer, ObjectSubscription, ActionSubscriptionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, member, ObjectAccess, ActionAccessView), ErrForbidden)
}

func TestAuthorizeDropsRevokedRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	principal := &identitydomain.Principal{ID: "ops_1", Roles: []string{"operator"}}
	require.NoError(t, svc.Authorize(ctx, principal, ObjectSubscription, ActionSubscriptionView))

	principal.Roles = []string{"viewer"}
	assert.ErrorIs(t, svc.Authorize(ctx, principal, ObjectSubscription, ActionSubscriptionView), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, principal, ObjectAccess, ActionAccessView))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, nil, ObjectAccess, ActionAccessView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, &identitydomain.Principal{ID: "x"}, "", ActionAccessView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, &identitydomain.Principal{ID: "x"}, ObjectAccess, " "), ErrInvalidAction)
}
