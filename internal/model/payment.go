package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodGateway  = "gateway"
	MethodTransfer = "transfer"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodCard, MethodGateway, MethodTransfer:
		return true
	}
	return false
}

// Payment is one money movement against a sale and/or a session.
// Completed payments are immutable; only completed rows enter any sum.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    *uuid.UUID      `gorm:"type:uuid;index"`
	SessionID *uuid.UUID      `gorm:"type:uuid;index"`
	ShiftID   *uuid.UUID      `gorm:"type:uuid;index"`
	Method    string          `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status    string          `gorm:"type:varchar(20);not null;default:'completed'"`
	PaidAt    time.Time       `gorm:"not null"`
	// ExternalRef is the gateway or terminal transaction id
	ExternalRef       *string `gorm:"type:varchar(100)"`
	AuthorizationCode *string `gorm:"type:varchar(50)"`
	PayloadHash       *string `gorm:"type:varchar(64)"`
	CreatedBy         *uuid.UUID `gorm:"type:uuid"`
	CreatedAt         time.Time
}

// PaymentsSum adds the amounts of the completed payments in ps.
func PaymentsSum(ps []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		if p.Status == PaymentCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total
}
