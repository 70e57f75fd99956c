package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the billable record for a session or a settled manual debt.
// Total is fixed at creation; IssuedAt is stamped once completed payments cover it.
type Sale struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// SessionID is nil for sales created when settling a manual debt
	SessionID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	DocType   string          `gorm:"type:varchar(30);not null"`
	NetAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IssuedAt  *time.Time
	CreatedAt time.Time
}

// SaleStatus is the derived payment state of a sale. Closed is recomputed from
// completed payment rows every time it is read.
type SaleStatus struct {
	Sale   Sale
	Paid   decimal.Decimal
	Closed bool
}
