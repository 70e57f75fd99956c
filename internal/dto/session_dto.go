package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	Plate    string  `json:"plate"     validate:"required,min=2,max=20"`
	SectorID string  `json:"sector_id" validate:"required,uuid"`
	StreetID *string `json:"street_id" validate:"omitempty,uuid"`
}

type CheckoutRequest struct {
	// EndedAt defaults to now when empty (RFC 3339)
	EndedAt        string  `json:"ended_at"`
	DiscountRuleID *string `json:"discount_rule_id" validate:"omitempty,uuid"`
}

type CancelSessionRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID             string          `json:"id"`
	Plate          string          `json:"plate"`
	SectorID       string          `json:"sector_id"`
	StreetID       *string         `json:"street_id"`
	OperatorInID   string          `json:"operator_in_id"`
	Status         string          `json:"status"`
	StartedAt      string          `json:"started_at"`
	EndedAt        *string         `json:"ended_at"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	Sale           *SaleResponse   `json:"sale,omitempty"`
}

type SaleResponse struct {
	ID        string          `json:"id"`
	SessionID *string         `json:"session_id"`
	DocType   string          `json:"doc_type"`
	NetAmount decimal.Decimal `json:"net_amount"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Closed    bool            `json:"closed"`
	IssuedAt  *string         `json:"issued_at"`
}

// CheckoutResponse carries the priced session and the tariff breakdown.
type CheckoutResponse struct {
	Session   SessionResponse `json:"session"`
	Breakdown QuoteResponse   `json:"breakdown"`
}
