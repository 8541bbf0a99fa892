package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the provider failure taxonomy.
type ErrorKind string

const (
	// ErrTransient covers timeouts, rate limits and 5xx responses. Retried
	// twice with backoff before it surfaces.
	ErrTransient ErrorKind = "transient"
	// ErrPermanent covers invalid or revoked tokens and malformed requests.
	ErrPermanent ErrorKind = "permanent"
	// ErrScopeMismatch means the accepted scopes do not cover the required
	// ones. Required and Accepted carry the exact sets for user-facing
	// diagnostics.
	ErrScopeMismatch ErrorKind = "scope_mismatch"
)

// Error is a provider-attributed failure.
type Error struct {
	Provider string
	Kind     ErrorKind
	Required []string
	Accepted []string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrScopeMismatch:
		return fmt.Sprintf("%s: required scopes [%s], accepted scopes [%s]",
			e.Provider, strings.Join(e.Required, " "), strings.Join(e.Accepted, " "))
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrTransient
}

func transient(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: ErrTransient, Err: err}
}

func permanent(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: ErrPermanent, Err: err}
}

func scopeMismatch(provider string, required, accepted []string) *Error {
	return &Error{Provider: provider, Kind: ErrScopeMismatch, Required: required, Accepted: accepted}
}
