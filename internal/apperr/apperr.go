// Package apperr defines the error taxonomy shared by the auth, store and
// service layers. Validation, authentication and authorization failures are
// safe to show to callers verbatim. Persistence failures are not.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin role required")
	ErrPersistence     = errors.New("storage failure")
)

// ValidationError reports one malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// persistenceError keeps the storage cause for logs while matching
// ErrPersistence for callers.
type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *persistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.err}
}

// Persistence wraps a storage failure. A nil err returns nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &persistenceError{op: op, err: err}
}

// PublicMessage returns the text that may cross the service boundary.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthorized"
	case errors.Is(err, ErrForbidden):
		return "Admin access required"
	default:
		return "Internal server error"
	}
}
