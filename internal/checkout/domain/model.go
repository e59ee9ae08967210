package domain

import "time"

type Kind string

const (
	KindCheckout Kind = "checkout"
	KindPortal   Kind = "portal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Terminal reports whether the session will not change again.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed || s == StatusExpired
}

const (
	MessageNoCheckoutURL = "checkout session created but no url returned"
	MessageNoPortalURL   = "no portal url returned"
)

// Session is one hosted checkout or billing portal request. It is written
// pending and moves to exactly one terminal status.
type Session struct {
	ID                int64     `json:"id,string" gorm:"primaryKey"`
	PrincipalID       string    `json:"principal_id" gorm:"not null"`
	Kind              Kind      `json:"kind" gorm:"not null"`
	PriceID           *string   `json:"price_id,omitempty"`
	Status            Status    `json:"status" gorm:"not null"`
	URL               *string   `json:"url,omitempty"`
	Error             *string   `json:"error,omitempty"`
	ProviderSessionID *string   `json:"provider_session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "checkout_sessions" }

// FailureMessage returns the provider message recorded on a failed session.
func (s *Session) FailureMessage() string {
	if s == nil || s.Error == nil {
		return ""
	}
	return *s.Error
}

type CreateCheckoutRequest struct {
	PrincipalID string
	Email       string
	// PlanID is a product id or a price id.
	PlanID string
}

type CreatePortalRequest struct {
	PrincipalID string
	ReturnURL   string
}
