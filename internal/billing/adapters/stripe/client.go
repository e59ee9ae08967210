package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/streamgate/internal/config"
)

var (
	ErrNotConfigured   = errors.New("stripe_not_configured")
	ErrRequestFailed   = errors.New("stripe_request_failed")
	ErrResponseInvalid = errors.New("stripe_response_invalid")
)

// CheckoutParams describes a hosted subscription checkout.
type CheckoutParams struct {
	PrincipalID    string
	PriceID        string
	CustomerID     string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Stripe REST API for hosted checkout and billing portal sessions.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Stripe.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.Stripe.SecretKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (Session, error) {
	values := url.Values{}
	values.Set("mode", "subscription")
	values.Set("line_items[0][price]", params.PriceID)
	values.Set("line_items[0][quantity]", "1")
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	values.Set("client_reference_id", params.PrincipalID)
	values.Set("metadata[principal_id]", params.PrincipalID)
	values.Set("subscription_data[metadata][principal_id]", params.PrincipalID)
	if params.CustomerID != "" {
		values.Set("customer", params.CustomerID)
	} else if params.CustomerEmail != "" {
		values.Set("customer_email", params.CustomerEmail)
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, params.IdempotencyKey)
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (Session, error) {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("return_url", returnURL)
	return c.doRequest(ctx, http.MethodPost, "/v1/billing_portal/sessions", values, "")
}

func (c *Client) doRequest(ctx context.Context, method, path string, values url.Values, idempotencyKey string) (Session, error) {
	if c.apiKey == "" {
		return Session{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return Session{}, ErrRequestFailed
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			return Session{}, ErrRequestFailed
		}
		return Session{}, errors.New(message)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, err
	}
	if session.ID == "" {
		return Session{}, ErrResponseInvalid
	}
	return session, nil
}
