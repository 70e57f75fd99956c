// Package tariff prices a parking stay from a sector's pricing profile.
// Everything here is pure: no storage, no clock, no logging.
package tariff

import (
	"sort"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Breakdown explains how an amount was derived.
type Breakdown struct {
	RuleID         uuid.UUID       `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	Minutes        int             `json:"minutes"`
	Rate           decimal.Decimal `json:"rate"`
	FixedPrice     decimal.Decimal `json:"fixed_price"`
	Base           decimal.Decimal `json:"base"`
	MinimumApplied bool            `json:"minimum_applied"`
	CapApplied     bool            `json:"cap_applied"`
	// Fallback is set when no rule range contained the minutes
	Fallback bool            `json:"fallback"`
	Amount   decimal.Decimal `json:"amount"`
}

// BillableMinutes rounds an elapsed duration up to whole minutes.
// 61s bills as 2 minutes; non-positive durations bill as 0.
func BillableMinutes(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	m := elapsed / time.Minute
	if elapsed%time.Minute != 0 {
		m++
	}
	return int(m)
}

// Quote prices minutes against profile, which must be active at t.
func Quote(profile *model.PricingProfile, t time.Time, minutes int) (Breakdown, error) {
	if profile == nil || !profile.ActiveAt(t) {
		return Breakdown{}, apperr.ErrNoActiveTariff
	}
	rule, fallback, err := SelectRule(profile.Rules, minutes)
	if err != nil {
		return Breakdown{}, err
	}
	b := Price(rule, minutes)
	b.Fallback = fallback
	return b, nil
}

// SelectRule picks the active rule whose duration range contains minutes,
// preferring the lowest priority. When no range matches it falls back to the
// first active rule by priority, then by range start.
func SelectRule(rules []model.PricingRule, minutes int) (model.PricingRule, bool, error) {
	active := make([]model.PricingRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return model.PricingRule{}, false, apperr.ErrNoPricingRules
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].MinDurationMinutes < active[j].MinDurationMinutes
	})
	for _, r := range active {
		if inRange(r, minutes) {
			return r, false, nil
		}
	}
	return active[0], true, nil
}

func inRange(r model.PricingRule, minutes int) bool {
	if minutes < r.MinDurationMinutes {
		return false
	}
	return r.MaxDurationMinutes == nil || minutes <= *r.MaxDurationMinutes
}

// Price applies one rule to minutes: base or fixed price, then the minimum
// floor, then the daily maximum cap.
func Price(rule model.PricingRule, minutes int) Breakdown {
	if minutes < 0 {
		minutes = 0
	}
	b := Breakdown{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Minutes:    minutes,
		Rate:       rule.PricePerMinute,
		FixedPrice: rule.FixedPrice,
	}

	fixed := rule.FixedPrice.IsPositive()
	if fixed {
		b.Base = rule.FixedPrice
	} else {
		b.Base = rule.PricePerMinute.Mul(decimal.NewFromInt(int64(minutes)))
	}
	amount := b.Base

	if rule.MinimumAmount.IsPositive() {
		switch {
		case rule.MinimumIsBase && !fixed:
			// minimum covers the first MinimumDurationMinutes, the rate applies after
			amount = rule.MinimumAmount
			if extra := minutes - rule.MinimumDurationMinutes; extra > 0 {
				amount = amount.Add(rule.PricePerMinute.Mul(decimal.NewFromInt(int64(extra))))
			}
			b.MinimumApplied = true
		case amount.LessThan(rule.MinimumAmount):
			amount = rule.MinimumAmount
			b.MinimumApplied = true
		}
	}

	if rule.DailyMaximum.IsPositive() && amount.GreaterThan(rule.DailyMaximum) {
		amount = rule.DailyMaximum
		b.CapApplied = true
	}

	b.Amount = amount.Round(2)
	return b
}

// Discount returns the discount d grants on gross for a stay of minutes.
// The result is never negative and never exceeds gross.
func Discount(gross decimal.Decimal, d *model.DiscountRule, minutes int) decimal.Decimal {
	if d == nil || !d.Active || minutes < d.MinMinutes || !gross.IsPositive() {
		return decimal.Zero
	}
	var off decimal.Decimal
	switch d.Kind {
	case model.DiscountPercent:
		off = gross.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	case model.DiscountFixed:
		off = d.Value
	}
	if off.IsNegative() {
		return decimal.Zero
	}
	if off.GreaterThan(gross) {
		return gross
	}
	return off
}
