package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers that only care about the category
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindValidation          ErrorKind = "VALIDATION"
	KindConflict            ErrorKind = "CONFLICT"
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// A kind sentinel (Code equal to its Kind) matches every error of that kind,
// any other target matches on Code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code == string(t.Kind) {
		return e.Kind == t.Kind
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error that wraps cause
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, cause: cause}
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a NOT_FOUND error for the named entity
func NewNotFoundError(entity string, id any) *DomainError {
	return NewDomainError(KindNotFound, string(KindNotFound), fmt.Sprintf("%s %v not found", entity, id))
}

// NewValidationError creates a business rule violation error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewConflictError creates a state conflict error
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// Kind sentinels, usable with errors.Is
var (
	ErrNotFound            = NewDomainError(KindNotFound, string(KindNotFound), "Resource not found")
	ErrValidation          = NewDomainError(KindValidation, string(KindValidation), "Validation failed")
	ErrConflict            = NewDomainError(KindConflict, string(KindConflict), "Resource state conflict")
	ErrConcurrencyConflict = NewDomainError(KindConcurrencyConflict, string(KindConcurrencyConflict), "Resource was modified by another process")
)

// KindOf returns the kind of err, or "" when err is not a DomainError
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

// CodeOf returns the code of err, or "" when err is not a DomainError
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsRetryable reports whether err is a transient concurrency failure that can be retried with identical input
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
