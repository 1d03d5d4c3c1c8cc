package shared

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of a domain error.
type Kind string

const (
	// KindValidation covers malformed input, unresolvable UOMs and similar caller mistakes.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindNotFound indicates an unknown identifier.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidState indicates an operation not permitted in the entity's current status.
	KindInvalidState Kind = "INVALID_STATE"
	// KindInsufficientStock indicates a movement that would drive stock negative without override.
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	// KindConflict indicates lock contention; callers may retry.
	KindConflict Kind = "CONFLICT"
	// KindPersistence indicates a storage failure; surfaced generically.
	KindPersistence Kind = "PERSISTENCE_ERROR"
)

// Error carries the error kind plus optional per-field detail for callers.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// NewValidation builds a validation error with optional field detail.
func NewValidation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NewNotFound builds a not-found error for the named resource.
func NewNotFound(resource, id string) *Error {
	msg := fmt.Sprintf("%s not found", resource)
	if id != "" {
		msg = fmt.Sprintf("%s %q not found", resource, id)
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

// NewInvalidState builds an invalid-state error.
func NewInvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message}
}

// NewInsufficientStock builds the insufficient-stock error with quantity detail.
func NewInsufficientStock(product string, available, requested float64) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s: available %.4f, requested %.4f", product, available, requested),
		Fields: map[string]string{
			"available": fmt.Sprintf("%.4f", available),
			"requested": fmt.Sprintf("%.4f", requested),
		},
	}
}

// NewConflict wraps a lock-contention failure. Retryable.
func NewConflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// NewPersistence wraps a storage failure.
func NewPersistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "storage failure", Err: err}
}

// KindOf reports the Kind of err, or KindPersistence when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsConflict reports whether err is a retryable conflict.
func IsConflict(err error) bool { return IsKind(err, KindConflict) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }
