package domain

import "errors"

var (
	ErrPlanUnavailable     = errors.New("plan_unavailable")
	ErrPlanNotFound        = errors.New("plan_not_found")
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrProviderNotFound    = errors.New("provider_not_found")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrInvalidEvent        = errors.New("invalid_event")
	ErrEventIgnored        = errors.New("event_ignored")
	ErrPrincipalUnresolved = errors.New("principal_unresolved")
)
