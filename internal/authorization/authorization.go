package authorization

import (
	"context"
	"errors"

	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

const (
	ObjectAccess       = "access"
	ObjectSubscription = "subscription"
	ObjectBillingEvent = "billing_event"
)

const (
	ActionAccessView       = "access.view"
	ActionSubscriptionView = "subscription.view"
	ActionBillingEventView = "billing_event.view"
)

const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Service decides whether a principal may perform an operator action.
// Roles are taken from the principal as issued by the identity provider.
type Service interface {
	Authorize(ctx context.Context, principal *identitydomain.Principal, object, action string) error
}
