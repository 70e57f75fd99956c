// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"

	"parkcore/internal/apperr"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Code: "invalid_input", Fields: fields}
}

// StatusOf maps an apperr kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConfiguration:
		return http.StatusUnprocessableEntity
	case apperr.KindStateConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindExternalDependency:
		return http.StatusServiceUnavailable
	case apperr.KindQuotaExceeded:
		return http.StatusPaymentRequired
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a service error into a status and envelope. Errors that
// are not *apperr.Error become an opaque 500.
func FromError(err error) (int, *APIError) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, &APIError{Detail: "internal server error", Code: "internal"}
	}
	detail := e.Detail
	if detail == "" {
		detail = e.Code
	}
	return StatusOf(e.Kind), &APIError{Detail: detail, Code: e.Code}
}
