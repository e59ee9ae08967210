package domain

import "errors"

var (
	ErrInvalidToken    = errors.New("invalid_token")
	ErrInvalidSession  = errors.New("invalid_session")
	ErrSessionNotFound = errors.New("session_not_found")
	ErrSessionExpired  = errors.New("session_expired")
	ErrUnauthenticated = errors.New("unauthenticated")
)
