package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents a structurally invalid request
	// (self-link, same-work pair, candidate outside its triplet, ...).
	// Always caller-correctable, never retried.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict represents a uniqueness invariant already
	// satisfied by an existing entity
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeNotFound represents a referenced entity that does not
	// resolve in the store
	ErrorTypeNotFound ErrorType = "notfound"
	// ErrorTypeStore represents a transport or transaction failure from
	// the graph store; recovery is a boundary concern
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeUnauthorized represents a caller without the required
	// authorization level
	ErrorTypeUnauthorized ErrorType = "unauthorized"
)

// BaseError is the error type carried across the engine boundary
type BaseError struct {
	Type    ErrorType
	Message string
	Err     error // wrapped cause
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewValidation creates a validation error
func NewValidation(format string, args ...interface{}) *BaseError {
	return &BaseError{Type: ErrorTypeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewConflict creates a conflict error
func NewConflict(format string, args ...interface{}) *BaseError {
	return &BaseError{Type: ErrorTypeConflict, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a not-found error for an entity kind and identifier
func NewNotFound(kind, uid string) *BaseError {
	return &BaseError{Type: ErrorTypeNotFound, Message: fmt.Sprintf("%s not found: %s", kind, uid)}
}

// NewStore wraps a graph store failure
func NewStore(message string, err error) *BaseError {
	return &BaseError{Type: ErrorTypeStore, Message: message, Err: err}
}

// NewUnauthorized creates an authorization error
func NewUnauthorized(format string, args ...interface{}) *BaseError {
	return &BaseError{Type: ErrorTypeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the category of err, or ErrorTypeStore for errors that
// did not originate in this package
func TypeOf(err error) ErrorType {
	var base *BaseError
	if stderrors.As(err, &base) {
		return base.Type
	}
	return ErrorTypeStore
}

func is(err error, t ErrorType) bool {
	var base *BaseError
	return stderrors.As(err, &base) && base.Type == t
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return is(err, ErrorTypeValidation) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return is(err, ErrorTypeConflict) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return is(err, ErrorTypeNotFound) }

// IsStore reports whether err is a store failure
func IsStore(err error) bool { return is(err, ErrorTypeStore) }

// IsUnauthorized reports whether err is an authorization error
func IsUnauthorized(err error) bool { return is(err, ErrorTypeUnauthorized) }
