package domain

import "errors"

var (
	ErrInvalidPrincipal = errors.New("invalid_principal")
	ErrInvalidTitle     = errors.New("invalid_title")
)
