package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Status is the billing provider's subscription status. Unknown values never grant access.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusPastDue           Status = "past_due"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

func ParseStatus(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

func (s Status) Grants() bool {
	return s == StatusActive || s == StatusTrialing
}

// SubscriptionRecord is one row of the billing projection for a principal.
type SubscriptionRecord struct {
	ID                 string     `json:"id"`
	PrincipalID        string     `json:"principal_id"`
	ProviderCustomerID *string    `json:"provider_customer_id,omitempty"`
	Status             Status     `json:"status"`
	PriceID            *string    `json:"price_id,omitempty"`
	ProductID          *string    `json:"product_id,omitempty"`
	PlanName           *string    `json:"plan_name,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	Created            time.Time  `json:"created"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (SubscriptionRecord) TableName() string { return "billing_subscriptions" }

// EffectiveAccess is the reduction of a principal's subscription records.
// Record is the first granting record in listing order, nil when denied.
type EffectiveAccess struct {
	Granted bool                `json:"granted"`
	Record  *SubscriptionRecord `json:"record,omitempty"`
}

// Reduce grants access iff some record is active or trialing. Records are
// expected newest first; the first granting one wins.
func Reduce(records []SubscriptionRecord) EffectiveAccess {
	for i := range records {
		if records[i].Status.Grants() {
			record := records[i]
			return EffectiveAccess{Granted: true, Record: &record}
		}
	}
	return EffectiveAccess{}
}

type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Active      bool              `json:"active"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Product) TableName() string { return "billing_products" }

type Price struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	Active        bool      `json:"active"`
	Currency      string    `json:"currency"`
	UnitAmount    *int64    `json:"unit_amount,omitempty"`
	Nickname      *string   `json:"nickname,omitempty"`
	Interval      *string   `json:"interval,omitempty"`
	IntervalCount int       `json:"interval_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Price) TableName() string { return "billing_prices" }

// Customer maps a principal to the billing provider's customer.
type Customer struct {
	PrincipalID        string `gorm:"primaryKey"`
	ProviderCustomerID string
	Email              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (Customer) TableName() string { return "billing_customers" }

// Event is the replay-safe log of received provider webhooks.
type Event struct {
	ID              int64          `json:"id,string"`
	Provider        string         `json:"provider"`
	ProviderEventID string         `json:"provider_event_id"`
	Type            string         `json:"type"`
	Outcome         string         `json:"outcome"`
	Payload         datatypes.JSON `json:"-"`
	ReceivedAt      time.Time      `json:"received_at"`
}

func (Event) TableName() string { return "billing_events" }

const (
	EventOutcomeReceived   = "received"
	EventOutcomeApplied    = "applied"
	EventOutcomeIgnored    = "ignored"
	EventOutcomeUnresolved = "unresolved"
	EventOutcomeDuplicate  = "duplicate"
)

// PlanFeatures are the display attributes carried in product metadata.
type PlanFeatures struct {
	Quality    string `json:"quality,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Streams    string `json:"streams,omitempty"`
	Downloads  string `json:"downloads,omitempty"`
	Badge      string `json:"badge,omitempty"`
}

type Plan struct {
	ID              string       `json:"id"`
	Slug            string       `json:"slug"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	PriceID         string       `json:"price_id,omitempty"`
	UnitAmount      *int64       `json:"unit_amount,omitempty"`
	Currency        string       `json:"currency,omitempty"`
	PriceLabel      string       `json:"price_label"`
	Features        PlanFeatures `json:"features"`
	Available       bool         `json:"available"`
	DefaultSelected bool         `json:"default_selected"`
	SortOrder       float64      `json:"-"`
}

const NoticeNoPlans = "no_plans"

type PlanList struct {
	Plans  []Plan `json:"plans"`
	Notice string `json:"notice,omitempty"`
}

type AccountSummary struct {
	PrincipalID    string  `json:"principal_id"`
	Email          string  `json:"email,omitempty"`
	Granted        bool    `json:"granted"`
	SubscriptionID string  `json:"subscription_id,omitempty"`
	PlanName       string  `json:"plan_name"`
	Status         string  `json:"status,omitempty"`
	RenewsOn       string  `json:"renews_on"`
	MemberSince    *string `json:"member_since,omitempty"`
}
