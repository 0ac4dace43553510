package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFavor = errors.New("insufficient divine favor")
	ErrConfigMissing     = errors.New("pricing config missing")
	ErrConcurrency       = errors.New("concurrent modification")
	ErrTickInProgress    = errors.New("tick already in progress")
	ErrVersionConflict   = errors.New("version conflict")
	ErrLockHeld          = errors.New("lock already held")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientFavorError reports a spend larger than the spendable balance.
type InsufficientFavorError struct {
	PlayerID  string
	Available int64
	Required  int64
}

func (e *InsufficientFavorError) Error() string {
	return fmt.Sprintf("player %s has %d favor available, %d required", e.PlayerID, e.Available, e.Required)
}

// Unwrap lets errors.Is match ErrInsufficientFavor.
func (e *InsufficientFavorError) Unwrap() error { return ErrInsufficientFavor }

// NotFound wraps ErrNotFound with the kind and id that was missing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
