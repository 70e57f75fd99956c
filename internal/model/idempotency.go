package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	IdempotencyPending   = "pending"
	IdempotencyCompleted = "completed"
)

// IdempotencyRecord stores the outcome of an externally triggered operation.
// Key is unique; the row is claimed before the operation runs.
type IdempotencyRecord struct {
	Key         string `gorm:"primaryKey;type:varchar(128)"`
	Endpoint    string `gorm:"type:varchar(100);not null"`
	PayloadHash string `gorm:"type:varchar(64);not null"`
	Status      string `gorm:"type:varchar(20);not null"`
	Result      datatypes.JSON
	CreatedAt   time.Time
	CompletedAt *time.Time
}
