package services

import (
	"errors"
	"fmt"

	"github.com/onceloved/storefront/internal/catalog"
	"github.com/onceloved/storefront/internal/db"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrNotFound                = errors.New("not found")
	ErrConflict                = errors.New("conflict")
	ErrInsufficientStock       = catalog.ErrInsufficientStock
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrServiceUnavailable      = errors.New("service unavailable")
)

// ValidationError is a client mistake whose message is safe to show.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// kindError carries a user-facing message for one of the sentinels above.
type kindError struct {
	kind    error
	message string
}

func (e *kindError) Error() string {
	return e.message
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func notFound(resource string) error {
	return &kindError{kind: ErrNotFound, message: resource + " not found"}
}

func conflict(message string) error {
	return &kindError{kind: ErrConflict, message: message}
}

func invalidTransition(from, to any) error {
	return &kindError{kind: ErrInvalidStatusTransition, message: fmt.Sprintf("cannot change status from %v to %v", from, to)}
}

func unavailable(feature string) error {
	return &kindError{kind: ErrServiceUnavailable, message: feature + " is not configured"}
}

// storeError maps store sentinels onto service errors. Anything else is wrapped
// with action and stays an internal error.
func storeError(err error, resource, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return notFound(resource)
	case errors.Is(err, db.ErrDuplicate):
		return conflict(resource + " already exists")
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
