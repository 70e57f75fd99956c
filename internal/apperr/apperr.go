// Package apperr defines the structured error kinds returned by the core services.
// Services never format user-facing messages; handlers translate a Kind into an
// HTTP status through the apierror package.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and transport mapping.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindStateConflict      Kind = "state_conflict"
	KindNotFound           Kind = "not_found"
	KindConfiguration      Kind = "configuration"
	KindExternalDependency Kind = "external_dependency"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindUnauthenticated    Kind = "unauthenticated"
	KindInternal           Kind = "internal"
)

// Error is a classified core error. Two errors match with errors.Is when their
// codes are equal, so a sentinel keeps matching after WithDetail.
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Err    error
}

func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy of e carrying a formatted detail message.
func (e *Error) WithDetail(format string, args ...any) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// ── Sentinels ────────────────────────────────────────────────────────────────

var (
	// Validation
	ErrInvalidAmount      = New(KindValidation, "invalid_amount", "amount must be greater than zero")
	ErrInvalidMethod      = New(KindValidation, "invalid_method", "unknown payment method")
	ErrInsufficientAmount = New(KindValidation, "insufficient_amount", "amount does not cover the pending debt")
	ErrInvalidInput       = New(KindValidation, "invalid_input", "")
	ErrShiftRequired      = New(KindValidation, "shift_required", "cash payments require an open shift")

	// State conflicts
	ErrSessionNotActive     = New(KindStateConflict, "session_not_active", "session is not ACTIVE")
	ErrInvalidTransition    = New(KindStateConflict, "invalid_transition", "")
	ErrActiveSessionExists  = New(KindStateConflict, "active_session_exists", "plate already has an ACTIVE session in this sector")
	ErrDebtNotPending       = New(KindStateConflict, "debt_not_pending", "debt is not pending")
	ErrShiftAlreadyOpen     = New(KindStateConflict, "shift_already_open", "an open shift already exists for this operator and device")
	ErrShiftNotOpen         = New(KindStateConflict, "shift_not_open", "shift is not open")
	ErrOperatorInactive     = New(KindStateConflict, "operator_inactive", "operator is not active")
	ErrOperatorNotAssigned  = New(KindStateConflict, "operator_not_assigned", "operator is not assigned to this sector/street")
	ErrIdempotencyConflict  = New(KindStateConflict, "idempotency_conflict", "idempotency key reused with a different payload")
	ErrIdempotencyInFlight  = New(KindStateConflict, "idempotency_in_flight", "an operation with this key is still in progress")
	ErrUniqueViolation      = New(KindStateConflict, "unique_violation", "")
	ErrSaleAlreadyExists    = New(KindStateConflict, "sale_already_exists", "session already owns a sale")
	ErrSessionAlreadyClosed = New(KindStateConflict, "session_closed", "closed sessions cannot be canceled")

	// Authentication
	ErrInvalidCredentials = New(KindUnauthenticated, "invalid_credentials", "invalid username or password")
	ErrInvalidToken       = New(KindUnauthenticated, "invalid_token", "token is invalid or expired")

	// Not found
	ErrNotFound = New(KindNotFound, "not_found", "")

	// Configuration
	ErrNoActiveTariff = New(KindConfiguration, "no_active_tariff", "no active pricing profile for sector")
	ErrNoPricingRules = New(KindConfiguration, "no_pricing_rules", "pricing profile has no active rules")

	// Collaborators
	ErrExternalDependency = New(KindExternalDependency, "external_dependency", "")
	ErrQuotaExceeded      = New(KindQuotaExceeded, "quota_exceeded", "")
)

// NotFound builds a NotFound error naming the missing entity.
func NotFound(entity string, id any) *Error {
	return ErrNotFound.WithDetail("%s %v not found", entity, id)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// IsClientError reports whether err was caused by the caller's input or by the
// current entity state, i.e. whether retrying the same call cannot succeed.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindStateConflict, KindNotFound, KindQuotaExceeded, KindUnauthenticated:
		return true
	}
	return false
}
