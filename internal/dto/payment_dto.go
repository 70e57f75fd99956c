package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecordPaymentRequest struct {
	SaleID            *string         `json:"sale_id"    validate:"omitempty,uuid"`
	SessionID         *string         `json:"session_id" validate:"omitempty,uuid"`
	ShiftID           *string         `json:"shift_id"   validate:"omitempty,uuid"`
	Method            string          `json:"method"     validate:"required,oneof=cash card gateway transfer"`
	Amount            decimal.Decimal `json:"amount"     validate:"required,gt=0"`
	AuthorizationCode *string         `json:"authorization_code" validate:"omitempty,max=50"`
	ExternalRef       *string         `json:"external_ref"       validate:"omitempty,max=100"`
	// FinalPayment marks a checkout payment after which no further payment is
	// expected; a shortfall then becomes a debt.
	FinalPayment bool `json:"final_payment"`
}

type ConfirmExternalRequest struct {
	SaleID            *string         `json:"sale_id"    validate:"omitempty,uuid"`
	SessionID         *string         `json:"session_id" validate:"omitempty,uuid"`
	Amount            decimal.Decimal `json:"amount"     validate:"required,gt=0"`
	TransactionID     string          `json:"transaction_id"     validate:"required,max=100"`
	AuthorizationCode *string         `json:"authorization_code" validate:"omitempty,max=50"`
	FinalPayment      bool            `json:"final_payment"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// PaymentResponse is also the stored idempotent result of an external
// confirmation, so every field is a plain JSON value.
type PaymentResponse struct {
	ID                string          `json:"id"`
	SaleID            *string         `json:"sale_id"`
	SessionID         *string         `json:"session_id"`
	ShiftID           *string         `json:"shift_id"`
	Method            string          `json:"method"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	PaidAt            string          `json:"paid_at"`
	ExternalRef       *string         `json:"external_ref"`
	AuthorizationCode *string         `json:"authorization_code"`
	SaleClosed        bool            `json:"sale_closed"`
	SalePaid          decimal.Decimal `json:"sale_paid"`
	DebtID            *string         `json:"debt_id"`
}
