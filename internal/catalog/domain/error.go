package domain

import "errors"

var (
	ErrUnknownCategory  = errors.New("unknown_category")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrTitleNotFound    = errors.New("title_not_found")
	ErrNotConfigured    = errors.New("catalog_not_configured")
	ErrUpstreamFailed   = errors.New("catalog_upstream_failed")
	ErrUpstreamThrottle = errors.New("catalog_upstream_throttled")
)
