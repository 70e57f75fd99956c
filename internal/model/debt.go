package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DebtPending   = "pending"
	DebtSettled   = "settled"
	DebtCancelled = "cancelled"
)

const (
	OriginShortfall = "session_shortfall"
	OriginFine      = "fine"
	OriginManual    = "manual"
)

// Debt is an outstanding amount owed by a plate.
// PrincipalAmount is the pending amount; it drops to zero only when settled.
type Debt struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Plate           string          `gorm:"type:varchar(20);not null;index"`
	SessionID       *uuid.UUID      `gorm:"type:uuid"`
	SaleID          *uuid.UUID      `gorm:"type:uuid"`
	Origin          string          `gorm:"type:varchar(30);not null"`
	OriginalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrincipalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending'"`
	Notes           *string
	CreatedAt       time.Time
	SettledAt       *time.Time
	CancelledAt     *time.Time
	CancelReason    *string

	// SettledPaymentID is the payment that brought the debt to zero.
	SettledPaymentID *uuid.UUID `gorm:"type:uuid"`
}
