package domain

import (
	"strings"
	"time"
)

// Principal is the signed-in visitor. It is observed, never mutated.
type Principal struct {
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// SamePrincipal compares identities by ID only; nil means signed out.
func SamePrincipal(a, b *Principal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// AuthPhase is loading, or resolved to a principal or to signed out (nil).
type AuthPhase struct {
	resolved  bool
	principal *Principal
}

func Loading() AuthPhase {
	return AuthPhase{}
}

func Resolved(p *Principal) AuthPhase {
	return AuthPhase{resolved: true, principal: p}
}

func (a AuthPhase) IsLoading() bool {
	return !a.resolved
}

func (a AuthPhase) IsSignedOut() bool {
	return a.resolved && a.principal == nil
}

func (a AuthPhase) Principal() *Principal {
	return a.principal
}

// PrincipalID is empty while loading or signed out.
func (a AuthPhase) PrincipalID() string {
	if a.principal == nil {
		return ""
	}
	return a.principal.ID
}

func (a AuthPhase) String() string {
	switch {
	case !a.resolved:
		return "loading"
	case a.principal == nil:
		return "resolved(none)"
	default:
		return "resolved(" + a.principal.ID + ")"
	}
}

// Session binds a browser cookie to the principal currently signed in on it.
type Session struct {
	ID          string
	PrincipalID *string
	Email       *string
	Roles       string
	ExpiresAt   time.Time
	SignedOutAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Session) TableName() string { return "identity_sessions" }

// Principal returns nil when the session is signed out, expired or empty.
func (s *Session) Principal(now time.Time) *Principal {
	if s == nil || s.SignedOutAt != nil || s.PrincipalID == nil || now.After(s.ExpiresAt) {
		return nil
	}
	p := &Principal{ID: *s.PrincipalID}
	if s.Email != nil {
		p.Email = *s.Email
	}
	p.Roles = SplitRoles(s.Roles)
	return p
}

func JoinRoles(roles []string) string {
	cleaned := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.TrimSpace(role); role != "" {
			cleaned = append(cleaned, role)
		}
	}
	return strings.Join(cleaned, ",")
}

func SplitRoles(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}
