package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Operator stores field staff and back-office users with role-based access.
// Role: "operator" | "supervisor" | "admin"
type Operator struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sector is a priced parking zone.
type Sector struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

type Street struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SectorID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}

// OperatorAssignment authorizes an operator to work a sector, optionally limited
// to one street, during [ValidFrom, ValidTo). A nil ValidTo never expires.
type OperatorAssignment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperatorID uuid.UUID  `gorm:"type:uuid;index;not null"`
	SectorID   uuid.UUID  `gorm:"type:uuid;not null"`
	StreetID   *uuid.UUID `gorm:"type:uuid"`
	ValidFrom  time.Time  `gorm:"not null"`
	ValidTo    *time.Time
	CreatedAt  time.Time
}

// Covers reports whether the assignment authorizes work on sectorID/streetID at t.
// An assignment without a street covers every street of its sector.
func (a OperatorAssignment) Covers(sectorID uuid.UUID, streetID *uuid.UUID, t time.Time) bool {
	if a.SectorID != sectorID {
		return false
	}
	if t.Before(a.ValidFrom) || (a.ValidTo != nil && !t.Before(*a.ValidTo)) {
		return false
	}
	if a.StreetID == nil {
		return true
	}
	return streetID != nil && *a.StreetID == *streetID
}
