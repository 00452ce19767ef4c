// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"sort"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Credential errors. Messages are user-facing.
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired access code")
	ErrUnauthorizedRole     = errors.New("this role cannot be requested here")
	ErrReservedEmail        = errors.New("this email address is reserved")
	ErrEmailTaken           = errors.New("email has already been taken")
	ErrValidation           = errors.New("validation error")

	// Client-side errors.
	ErrTransport      = errors.New("cannot reach server")
	ErrSessionExpired = errors.New("session expired, please sign in again")
	ErrBusy           = errors.New("another request is in progress")
	ErrStaleResponse  = errors.New("response no longer relevant")
	ErrInvalidStep    = errors.New("not available at this step")
)

// ValidationError carries per-field messages. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError builds a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field has a message.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// First returns the first message of the first field in sorted field order,
// or an empty string.
func (e *ValidationError) First() string {
	if e.Empty() {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(e.Fields[k]) > 0 {
			return e.Fields[k][0]
		}
	}
	return ""
}

func (e *ValidationError) Error() string {
	if msg := e.First(); msg != "" {
		return msg
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
