package model

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrExpired        = errors.New("access code has expired")
	ErrRevoked        = errors.New("access code has been revoked")
	ErrNoActiveStream = errors.New("no active livestream")
	ErrUnavailable    = errors.New("service unavailable")
	// ErrDuplicateCode is returned by inserts that hit the access-code uniqueness constraint.
	ErrDuplicateCode = errors.New("duplicate access code")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError carries a user-facing reason and matches ErrConflict.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
