package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
)

const (
	ProviderName = "stripe"

	// DefaultTolerance bounds how old a signed webhook timestamp may be.
	DefaultTolerance = 5 * time.Minute

	metadataPrincipalID = "principal_id"
)

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	clock         clock.Clock
}

func NewAdapter(cfg config.Config, clk clock.Clock) *Adapter {
	return &Adapter{
		webhookSecret: strings.TrimSpace(cfg.Stripe.WebhookSecret),
		tolerance:     DefaultTolerance,
		clock:         clk,
	}
}

func (a *Adapter) Provider() string {
	return ProviderName
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	ts, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	signedAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	age := a.clock.Now().Sub(time.Unix(signedAt, 0))
	if age < 0 {
		age = -age
	}
	if a.tolerance > 0 && age > a.tolerance {
		return domain.ErrInvalidSignature
	}

	expected := sign(a.webhookSecret, ts, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	out := &domain.WebhookEvent{
		Provider:        ProviderName,
		ProviderEventID: event.ID,
		ProviderType:    strings.TrimSpace(event.Type),
		OccurredAt:      timestamp(event.Created, 0, a.clock),
		RawPayload:      payload,
	}

	var err error
	switch out.ProviderType {
	case "customer.subscription.created", "customer.subscription.updated":
		out.Type = domain.EventSubscriptionUpsert
		out.Subscription, err = a.parseSubscription(event, false)
	case "customer.subscription.deleted":
		out.Type = domain.EventSubscriptionDelete
		out.Subscription, err = a.parseSubscription(event, true)
	case "product.created", "product.updated":
		out.Type = domain.EventProductUpsert
		out.Product, err = a.parseProduct(event)
	case "product.deleted":
		out.Type = domain.EventProductDelete
		out.Product, err = a.parseProduct(event)
	case "price.created", "price.updated":
		out.Type = domain.EventPriceUpsert
		out.Price, err = a.parsePrice(event)
	case "price.deleted":
		out.Type = domain.EventPriceDelete
		out.Price, err = a.parsePrice(event)
	case "checkout.session.completed":
		out.Type = domain.EventCheckoutCompleted
		out.Checkout, err = parseCheckoutSession(event)
	default:
		return nil, domain.ErrEventIgnored
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeSubscription struct {
	ID                string         `json:"id"`
	Customer          expandable     `json:"customer"`
	Status            string         `json:"status"`
	Created           int64          `json:"created"`
	CurrentPeriodEnd  int64          `json:"current_period_end"`
	CancelAtPeriodEnd bool           `json:"cancel_at_period_end"`
	Metadata          map[string]any `json:"metadata"`
	Items             struct {
		Data []stripeSubscriptionItem `json:"data"`
	} `json:"items"`
	Plan *stripePlan `json:"plan"`
}

type stripeSubscriptionItem struct {
	CurrentPeriodEnd int64        `json:"current_period_end"`
	Price            *stripePrice `json:"price"`
}

type stripePlan struct {
	ID       string     `json:"id"`
	Nickname *string    `json:"nickname"`
	Product  expandable `json:"product"`
}

type stripeProduct struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Active      bool           `json:"active"`
	Created     int64          `json:"created"`
	Metadata    map[string]any `json:"metadata"`
}

type stripePrice struct {
	ID         string     `json:"id"`
	Product    expandable `json:"product"`
	Active     bool       `json:"active"`
	Currency   string     `json:"currency"`
	UnitAmount *int64     `json:"unit_amount"`
	Nickname   *string    `json:"nickname"`
	Created    int64      `json:"created"`
	Recurring  *struct {
		Interval      string `json:"interval"`
		IntervalCount int    `json:"interval_count"`
	} `json:"recurring"`
}

type stripeCheckoutSession struct {
	ID                string     `json:"id"`
	ClientReferenceID string     `json:"client_reference_id"`
	Customer          expandable `json:"customer"`
	CustomerDetails   *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]any `json:"metadata"`
}

// expandable decodes a Stripe field that is either an id or an expanded object.
type expandable struct {
	ID   string
	Name string
}

func (e *expandable) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		e.ID = strings.TrimSpace(id)
		return nil
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.ID = strings.TrimSpace(obj.ID)
	e.Name = strings.TrimSpace(obj.Name)
	return nil
}

func (a *Adapter) parseSubscription(event stripeEvent, deleted bool) (*domain.SubscriptionUpdate, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	status := domain.ParseStatus(sub.Status)
	if deleted {
		status = domain.StatusCanceled
	}
	out := &domain.SubscriptionUpdate{
		ID:                 sub.ID,
		ProviderCustomerID: sub.Customer.ID,
		PrincipalID:        readMetadataValue(sub.Metadata, metadataPrincipalID),
		Status:             status,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Created:            timestamp(sub.Created, event.Created, a.clock),
	}

	periodEnd := sub.CurrentPeriodEnd
	if len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if periodEnd == 0 {
			periodEnd = item.CurrentPeriodEnd
		}
		if item.Price != nil {
			out.PriceID = item.Price.ID
			out.ProductID = item.Price.Product.ID
			out.PlanName = item.Price.Product.Name
			if out.PlanName == "" && item.Price.Nickname != nil {
				out.PlanName = strings.TrimSpace(*item.Price.Nickname)
			}
		}
	}
	if out.PriceID == "" && sub.Plan != nil {
		out.PriceID = sub.Plan.ID
		out.ProductID = sub.Plan.Product.ID
		if sub.Plan.Nickname != nil {
			out.PlanName = strings.TrimSpace(*sub.Plan.Nickname)
		}
	}
	if periodEnd > 0 {
		end := time.Unix(periodEnd, 0).UTC()
		out.CurrentPeriodEnd = &end
	}
	return out, nil
}

func (a *Adapter) parseProduct(event stripeEvent) (*domain.Product, error) {
	var product stripeProduct
	if err := json.Unmarshal(event.Data.Object, &product); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(product.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	metadata := map[string]any{}
	for key, value := range product.Metadata {
		metadata[key] = value
	}
	created := timestamp(product.Created, event.Created, a.clock)
	return &domain.Product{
		ID:          product.ID,
		Name:        strings.TrimSpace(product.Name),
		Description: product.Description,
		Active:      product.Active,
		Metadata:    metadata,
		CreatedAt:   created,
		UpdatedAt:   a.clock.Now(),
	}, nil
}

func (a *Adapter) parsePrice(event stripeEvent) (*domain.Price, error) {
	var price stripePrice
	if err := json.Unmarshal(event.Data.Object, &price); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(price.ID) == "" || price.Product.ID == "" {
		return nil, domain.ErrInvalidEvent
	}
	out := &domain.Price{
		ID:            price.ID,
		ProductID:     price.Product.ID,
		Active:        price.Active,
		Currency:      strings.ToLower(strings.TrimSpace(price.Currency)),
		UnitAmount:    price.UnitAmount,
		Nickname:      price.Nickname,
		IntervalCount: 1,
		CreatedAt:     timestamp(price.Created, event.Created, a.clock),
		UpdatedAt:     a.clock.Now(),
	}
	if price.Recurring != nil {
		interval := strings.TrimSpace(price.Recurring.Interval)
		if interval != "" {
			out.Interval = &interval
		}
		if price.Recurring.IntervalCount > 0 {
			out.IntervalCount = price.Recurring.IntervalCount
		}
	}
	return out, nil
}

func parseCheckoutSession(event stripeEvent) (*domain.CheckoutCompleted, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	principalID := strings.TrimSpace(session.ClientReferenceID)
	if principalID == "" {
		principalID = readMetadataValue(session.Metadata, metadataPrincipalID)
	}
	out := &domain.CheckoutCompleted{
		SessionID:          session.ID,
		PrincipalID:        principalID,
		ProviderCustomerID: session.Customer.ID,
	}
	if session.CustomerDetails != nil {
		out.Email = strings.TrimSpace(session.CustomerDetails.Email)
	}
	return out, nil
}

func sign(secret, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", ts, string(payload))))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var ts string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		switch key {
		case "t":
			ts = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if ts == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return ts, signatures, nil
}

func timestamp(primary int64, fallback int64, clk clock.Clock) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return clk.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	}
	return ""
}
