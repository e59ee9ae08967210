package domain

import "errors"

var (
	ErrInvalidPrincipal  = errors.New("invalid_principal")
	ErrRateLimited       = errors.New("rate_limited")
	ErrNoBillingCustomer = errors.New("no_billing_customer")
	ErrSessionNotFound   = errors.New("checkout_session_not_found")
	ErrSessionFailed     = errors.New("checkout_session_failed")
	ErrSessionExpired    = errors.New("checkout_session_expired")
	ErrAwaitTimeout      = errors.New("checkout_await_timeout")
)
