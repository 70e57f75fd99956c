package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateDebtRequest struct {
	Plate  string          `json:"plate"  validate:"required,min=2,max=20"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Origin string          `json:"origin" validate:"required,oneof=fine manual"`
	Notes  *string         `json:"notes"`
}

type SettleDebtRequest struct {
	Amount       decimal.Decimal `json:"amount"  validate:"required,gt=0"`
	Method       string          `json:"method"  validate:"required,oneof=cash card gateway transfer"`
	ShiftID      *string         `json:"shift_id" validate:"omitempty,uuid"`
	ApprovalCode *string         `json:"approval_code" validate:"omitempty,max=50"`
}

type CancelDebtRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DebtResponse struct {
	ID              string          `json:"id"`
	Plate           string          `json:"plate"`
	SessionID       *string         `json:"session_id"`
	SaleID          *string         `json:"sale_id"`
	Origin          string          `json:"origin"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	Status          string          `json:"status"`
	Notes           *string         `json:"notes"`
	CreatedAt       string          `json:"created_at"`
	SettledAt       *string         `json:"settled_at"`
	SettledPayment  *string         `json:"settled_payment_id"`
}

type SettleDebtResponse struct {
	Debt    DebtResponse    `json:"debt"`
	Payment PaymentResponse `json:"payment"`
}
