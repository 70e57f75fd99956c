package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenShiftRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float" validate:"min=0"`
	SectorID     *string         `json:"sector_id"     validate:"omitempty,uuid"`
	DeviceID     *string         `json:"device_id"     validate:"omitempty,max=64"`
	Notes        *string         `json:"notes"`
}

type AdjustmentRequest struct {
	Kind       string          `json:"kind"        validate:"required,oneof=withdrawal deposit"`
	Amount     decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Reason     string          `json:"reason"      validate:"required,min=3"`
	ApproverID *string         `json:"approver_id" validate:"omitempty,uuid"`
}

type CloseShiftRequest struct {
	DeclaredCash decimal.Decimal `json:"declared_cash" validate:"min=0"`
	Notes        *string         `json:"notes"`
}

type CancelShiftRequest struct {
	Notes *string `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MethodTotal struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type VarianceResponse struct {
	Amount         decimal.Decimal `json:"amount"`
	Percentage     decimal.Decimal `json:"percentage"`
	Classification string          `json:"classification"` // normal | warning | critical
}

// ShiftSummary is the canonical shift totals snapshot consumed by printing
// and reporting.
type ShiftSummary struct {
	ShiftID          string            `json:"shift_id"`
	OperatorID       string            `json:"operator_id"`
	DeviceID         *string           `json:"device_id"`
	Status           string            `json:"status"`
	OpeningFloat     decimal.Decimal   `json:"opening_float"`
	CashCollected    decimal.Decimal   `json:"cash_collected"`
	CashWithdrawals  decimal.Decimal   `json:"cash_withdrawals"`
	CashDeposits     decimal.Decimal   `json:"cash_deposits"`
	CashExpected     decimal.Decimal   `json:"cash_expected"`
	CashDeclared     *decimal.Decimal  `json:"cash_declared"`
	CashOverShort    *decimal.Decimal  `json:"cash_over_short"`
	TicketsCount     int               `json:"tickets_count"`
	SalesTotal       decimal.Decimal   `json:"sales_total"`
	PaymentsByMethod []MethodTotal     `json:"payments_by_method"`
	Variance         *VarianceResponse `json:"variance,omitempty"`
	OpenedAt         string            `json:"opened_at"`
	ClosedAt         *string           `json:"closed_at"`
}

type ShiftResponse struct {
	ID                  string           `json:"id"`
	OperatorID          string           `json:"operator_id"`
	SectorID            *string          `json:"sector_id"`
	DeviceID            *string          `json:"device_id"`
	OpeningFloat        decimal.Decimal  `json:"opening_float"`
	CashExpected        *decimal.Decimal `json:"cash_expected"`
	ClosingDeclaredCash *decimal.Decimal `json:"closing_declared_cash"`
	CashOverShort       *decimal.Decimal `json:"cash_over_short"`
	Status              string           `json:"status"`
	Notes               *string          `json:"notes"`
	OpenedAt            string           `json:"opened_at"`
	ClosedAt            *string          `json:"closed_at"`
}

type AdjustmentResponse struct {
	ID         string          `json:"id"`
	ShiftID    string          `json:"shift_id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	ActorID    string          `json:"actor_id"`
	ApproverID *string         `json:"approver_id"`
	CreatedAt  string          `json:"created_at"`
}

// ShiftOperationResponse is one entry of a shift's append-only operation log.
type ShiftOperationResponse struct {
	ID        string           `json:"id"`
	Kind      string           `json:"kind"`
	Amount    *decimal.Decimal `json:"amount"`
	ActorID   string           `json:"actor_id"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type ShiftHistoryFilter struct {
	OperatorID string `form:"operator_id"`
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
}

type ShiftHistoryResponse struct {
	Data  []ShiftResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
