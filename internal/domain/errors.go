package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrConflict          = errors.New("domain: conflict")
	ErrUnauthorized      = errors.New("domain: unauthorized")
	ErrForbidden         = errors.New("domain: forbidden")
	ErrInvalidTransition = errors.New("domain: invalid state transition")
	ErrInvalidInput      = errors.New("domain: invalid input")
)
