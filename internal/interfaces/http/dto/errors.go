package dto

import (
	"errors"
	"net/http"

	"github.com/debtdesk/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors carry their own specific code
// (EXCEEDS_AVAILABLE, ALREADY_REVERSED, ...) which is sent as-is.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeUnauthorized        = "ERR_UNAUTHORIZED"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeRouteNotFound       = "ERR_ROUTE_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnavailable         = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps transport-level codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeRouteNotFound:       http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:         http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for a transport-level code, 500 if unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForKind maps a domain error kind to its HTTP status.
// Validation errors that reach this point are business-rule failures, hence 422.
func StatusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindValidation:
		return http.StatusUnprocessableEntity
	case shared.KindConflict, shared.KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFrom converts err into a status code and error body.
// Non-domain errors are reported as an opaque internal error.
func ErrorFrom(err error, requestID string) (int, *ErrorInfo) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := domainErr.Code
		if code == "" {
			code = string(domainErr.Kind)
		}
		return StatusForKind(domainErr.Kind), &ErrorInfo{
			Code:      code,
			Kind:      string(domainErr.Kind),
			Message:   domainErr.Message,
			RequestID: requestID,
		}
	}
	return http.StatusInternalServerError, &ErrorInfo{
		Code:      ErrCodeInternal,
		Message:   "An unexpected error occurred",
		RequestID: requestID,
	}
}
