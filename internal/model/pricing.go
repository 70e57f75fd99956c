package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// PricingProfile is the tariff of a sector for an activity window.
type PricingProfile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SectorID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	Active     bool      `gorm:"not null;default:true"`
	ActiveFrom time.Time `gorm:"not null"`
	ActiveTo   *time.Time
	CreatedAt  time.Time

	Rules     []PricingRule  `gorm:"foreignKey:ProfileID"`
	Discounts []DiscountRule `gorm:"foreignKey:ProfileID"`
}

// ActiveAt reports whether the profile applies at t.
func (p *PricingProfile) ActiveAt(t time.Time) bool {
	if !p.Active || t.Before(p.ActiveFrom) {
		return false
	}
	return p.ActiveTo == nil || t.Before(*p.ActiveTo)
}

// PricingRule prices a duration range [MinDurationMinutes, MaxDurationMinutes].
// A nil MaxDurationMinutes leaves the range open-ended. Zero money fields are unset.
type PricingRule struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProfileID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name               string          `gorm:"not null"`
	MinDurationMinutes int             `gorm:"not null;default:0"`
	MaxDurationMinutes *int
	PricePerMinute     decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	FixedPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MinimumAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// MinimumIsBase charges MinimumAmount up to MinimumDurationMinutes and
	// the per-minute rate after it, instead of only raising low amounts.
	MinimumIsBase          bool            `gorm:"not null;default:false"`
	MinimumDurationMinutes int             `gorm:"not null;default:0"`
	DailyMaximum           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Priority               int             `gorm:"not null;default:0"`
	Active                 bool            `gorm:"not null;default:true"`
	CreatedAt              time.Time
}

// DiscountRule reduces the gross amount of a checkout.
// Kind: "percent" (Value in 0..100) | "fixed"
type DiscountRule struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProfileID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name       string          `gorm:"not null"`
	Kind       string          `gorm:"type:varchar(20);not null"`
	Value      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MinMinutes int             `gorm:"not null;default:0"`
	Active     bool            `gorm:"not null;default:true"`
	CreatedAt  time.Time
}
