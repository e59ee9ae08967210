package gate

import (
	"github.com/smallbiznis/streamgate/internal/access"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
)

type State string

const (
	StateResolving                State = "resolving"
	StateUnauthenticated          State = "unauthenticated"
	StateAuthenticatedNoAccess    State = "authenticated_no_access"
	StateAuthenticatedRedirecting State = "authenticated_redirecting"
	StateAuthenticatedGranted     State = "authenticated_granted"
	StateUnavailable              State = "unavailable"
)

// Settled reports whether the gate reached a verdict the caller can act on.
func (s State) Settled() bool {
	return s != StateResolving && s != StateAuthenticatedNoAccess
}

type Target string

const (
	TargetPlanSelection Target = "plan_selection"
)

type Effect struct {
	Navigate Target `json:"navigate"`
}

// Inputs are the latest observed upstream phases. AuthTimedOut is set by the
// runner once identity stayed loading past the resolve timeout.
type Inputs struct {
	Auth         identitydomain.AuthPhase
	Access       access.Phase
	AuthTimedOut bool
}
