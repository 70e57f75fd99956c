package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SessionCreated  = "CREATED"
	SessionActive   = "ACTIVE"
	SessionToPay    = "TO_PAY"
	SessionPaid     = "PAID"
	SessionClosed   = "CLOSED"
	SessionCanceled = "CANCELED"
)

// sessionTransitions lists the allowed next states for every session state.
var sessionTransitions = map[string][]string{
	SessionCreated: {SessionActive, SessionCanceled},
	SessionActive:  {SessionToPay, SessionCanceled},
	SessionToPay:   {SessionPaid, SessionCanceled},
	SessionPaid:    {SessionClosed},
}

// ParkingSession is one vehicle's metered stay in a sector.
// Sessions are never deleted: CLOSED and CANCELED are terminal.
type ParkingSession struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Plate          string     `gorm:"type:varchar(20);not null;index"`
	SectorID       uuid.UUID  `gorm:"type:uuid;not null"`
	StreetID       *uuid.UUID `gorm:"type:uuid"`
	OperatorInID   uuid.UUID  `gorm:"type:uuid;not null"`
	OperatorOutID  *uuid.UUID `gorm:"type:uuid"`
	StartedAt      time.Time  `gorm:"not null"`
	EndedAt        *time.Time
	ElapsedSeconds int64           `gorm:"not null;default:0"`
	GrossAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// PricingRuleID records the rule that priced the checkout
	PricingRuleID *uuid.UUID `gorm:"type:uuid"`
	Status        string     `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanTransition reports whether the session may move to the given status.
func (s *ParkingSession) CanTransition(to string) bool {
	for _, next := range sessionTransitions[s.Status] {
		if next == to {
			return true
		}
	}
	return false
}
