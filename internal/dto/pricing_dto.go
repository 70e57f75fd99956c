package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProfileRequest struct {
	SectorID   string  `json:"sector_id"   validate:"required,uuid"`
	Name       string  `json:"name"        validate:"required,min=2,max=120"`
	ActiveFrom string  `json:"active_from" validate:"required"` // RFC 3339
	ActiveTo   *string `json:"active_to"`
}

type CreateRuleRequest struct {
	Name                   string          `json:"name"                     validate:"required,min=2,max=120"`
	MinDurationMinutes     int             `json:"min_duration_minutes"     validate:"min=0"`
	MaxDurationMinutes     *int            `json:"max_duration_minutes"     validate:"omitempty,min=0"`
	PricePerMinute         decimal.Decimal `json:"price_per_minute"         validate:"min=0"`
	FixedPrice             decimal.Decimal `json:"fixed_price"              validate:"min=0"`
	MinimumAmount          decimal.Decimal `json:"minimum_amount"           validate:"min=0"`
	MinimumIsBase          bool            `json:"minimum_is_base"`
	MinimumDurationMinutes int             `json:"minimum_duration_minutes" validate:"min=0"`
	DailyMaximum           decimal.Decimal `json:"daily_maximum"            validate:"min=0"`
	Priority               int             `json:"priority"`
}

type CreateDiscountRequest struct {
	Name       string          `json:"name"        validate:"required,min=2,max=120"`
	Kind       string          `json:"kind"        validate:"required,oneof=percent fixed"`
	Value      decimal.Decimal `json:"value"       validate:"required,gt=0"`
	MinMinutes int             `json:"min_minutes" validate:"min=0"`
}

type QuoteRequest struct {
	SectorID       string  `json:"sector_id"        validate:"required,uuid"`
	Minutes        *int    `json:"minutes"          validate:"omitempty,min=0"`
	StartedAt      string  `json:"started_at"`
	EndedAt        string  `json:"ended_at"`
	DiscountRuleID *string `json:"discount_rule_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RuleResponse struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	MinDurationMinutes     int             `json:"min_duration_minutes"`
	MaxDurationMinutes     *int            `json:"max_duration_minutes"`
	PricePerMinute         decimal.Decimal `json:"price_per_minute"`
	FixedPrice             decimal.Decimal `json:"fixed_price"`
	MinimumAmount          decimal.Decimal `json:"minimum_amount"`
	MinimumIsBase          bool            `json:"minimum_is_base"`
	MinimumDurationMinutes int             `json:"minimum_duration_minutes"`
	DailyMaximum           decimal.Decimal `json:"daily_maximum"`
	Priority               int             `json:"priority"`
}

type DiscountResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Value      decimal.Decimal `json:"value"`
	MinMinutes int             `json:"min_minutes"`
}

type ProfileResponse struct {
	ID         string             `json:"id"`
	SectorID   string             `json:"sector_id"`
	Name       string             `json:"name"`
	Active     bool               `json:"active"`
	ActiveFrom string             `json:"active_from"`
	ActiveTo   *string            `json:"active_to"`
	Rules      []RuleResponse     `json:"rules"`
	Discounts  []DiscountResponse `json:"discounts"`
}

type QuoteResponse struct {
	RuleID         string          `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	Minutes        int             `json:"minutes"`
	Rate           decimal.Decimal `json:"rate"`
	FixedPrice     decimal.Decimal `json:"fixed_price"`
	Base           decimal.Decimal `json:"base"`
	MinimumApplied bool            `json:"minimum_applied"`
	CapApplied     bool            `json:"cap_applied"`
	Fallback       bool            `json:"fallback"`
	Gross          decimal.Decimal `json:"gross"`
	Discount       decimal.Decimal `json:"discount"`
	Net            decimal.Decimal `json:"net"`
}
