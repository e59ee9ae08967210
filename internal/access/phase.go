package access

import (
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
)

type phaseKind int

const (
	phaseIdle phaseKind = iota
	phaseLoading
	phaseResolved
)

// Phase is the access verdict stream value. Loading and resolved phases are
// tagged with the principal they were computed for.
type Phase struct {
	kind        phaseKind
	principalID string
	access      billingdomain.EffectiveAccess
}

func Idle() Phase {
	return Phase{kind: phaseIdle}
}

func Loading(principalID string) Phase {
	return Phase{kind: phaseLoading, principalID: principalID}
}

func Resolved(principalID string, access billingdomain.EffectiveAccess) Phase {
	return Phase{kind: phaseResolved, principalID: principalID, access: access}
}

// Denied is the fail-closed verdict.
func Denied(principalID string) Phase {
	return Resolved(principalID, billingdomain.EffectiveAccess{})
}

func (p Phase) IsIdle() bool     { return p.kind == phaseIdle }
func (p Phase) IsLoading() bool  { return p.kind == phaseLoading }
func (p Phase) IsResolved() bool { return p.kind == phaseResolved }

func (p Phase) PrincipalID() string { return p.principalID }

func (p Phase) Access() billingdomain.EffectiveAccess { return p.access }

// Granted reports a resolved granting verdict.
func (p Phase) Granted() bool {
	return p.kind == phaseResolved && p.access.Granted
}

// For reports whether the verdict applies to principalID.
func (p Phase) For(principalID string) bool {
	return p.kind != phaseIdle && p.principalID == principalID
}

func (p Phase) String() string {
	switch p.kind {
	case phaseLoading:
		return "loading"
	case phaseResolved:
		if p.access.Granted {
			return "granted"
		}
		return "denied"
	default:
		return "idle"
	}
}
