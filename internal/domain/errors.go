package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")
	ErrRateLimited      = errors.New("rate limited")
	ErrExpired          = errors.New("passcode expired")
	ErrAttemptsExceeded = errors.New("passcode attempts exceeded")
	ErrInvalidCode      = errors.New("invalid passcode")
	ErrUnavailable      = errors.New("dependency unavailable")
)
