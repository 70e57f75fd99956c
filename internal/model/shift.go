package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ShiftOpen     = "open"
	ShiftClosed   = "closed"
	ShiftCanceled = "canceled"
)

const (
	AdjustmentWithdrawal = "withdrawal"
	AdjustmentDeposit    = "deposit"
)

const (
	OpOpen       = "open"
	OpClose      = "close"
	OpCancel     = "cancel"
	OpWithdrawal = "withdrawal"
	OpDeposit    = "deposit"
)

// Shift represents the lifecycle of an operator's cash drawer.
// Status: "open" | "closed" | "canceled"
type Shift struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperatorID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SectorID     *uuid.UUID      `gorm:"type:uuid"`
	DeviceID     *string         `gorm:"type:varchar(64)"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// CashExpected is computed on close from payments and adjustments
	CashExpected        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ClosingDeclaredCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CashOverShort       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status              string           `gorm:"type:varchar(20);not null;default:'open'"`
	Notes               *string
	OpenedAt            time.Time
	ClosedAt            *time.Time
	ClosedBy            *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt           time.Time
}

// ShiftOperation is an append-only audit event of a shift.
// Kind: "open" | "close" | "cancel" | "withdrawal" | "deposit"
type ShiftOperation struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID   uuid.UUID        `gorm:"type:uuid;index;not null"`
	Kind      string           `gorm:"type:varchar(20);not null"`
	Amount    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ActorID   uuid.UUID        `gorm:"type:uuid;not null"`
	Payload   datatypes.JSON
	CreatedAt time.Time
}

// CashAdjustment moves cash in or out of the drawer outside of a sale.
// Withdrawals and deposits are stored separately and only netted when totals are computed.
type CashAdjustment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Kind       string          `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason     string          `gorm:"not null"`
	ActorID    uuid.UUID       `gorm:"type:uuid;not null"`
	ApproverID *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt  time.Time
}
