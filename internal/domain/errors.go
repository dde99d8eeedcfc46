package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateOrder        = errors.New("duplicate order")
	ErrOrderNotFound         = errors.New("order not found")
	ErrHashMismatch          = errors.New("hash mismatch")
	ErrConflictingTransition = errors.New("conflicting status transition")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrOrderNotPending       = errors.New("order is not pending")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
)

// ValidationError reports bad caller input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
