package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateOperatorRequest struct {
	Username string  `json:"username" validate:"required,min=1,max=60"`
	Name     string  `json:"name"     validate:"required,min=2,max=120"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role"     validate:"required,oneof=operator supervisor admin"`
}

type CreateAssignmentRequest struct {
	SectorID  string  `json:"sector_id"  validate:"required,uuid"`
	StreetID  *string `json:"street_id"  validate:"omitempty,uuid"`
	ValidFrom string  `json:"valid_from" validate:"required"` // RFC 3339
	ValidTo   *string `json:"valid_to"`
}

type CreateSectorRequest struct {
	Name    string   `json:"name"    validate:"required,min=2,max=120"`
	Streets []string `json:"streets" validate:"dive,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OperatorResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
	Active   bool    `json:"active"`
}

type AssignmentResponse struct {
	ID         string  `json:"id"`
	OperatorID string  `json:"operator_id"`
	SectorID   string  `json:"sector_id"`
	StreetID   *string `json:"street_id"`
	ValidFrom  string  `json:"valid_from"`
	ValidTo    *string `json:"valid_to"`
}

type StreetResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SectorResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Streets []StreetResponse `json:"streets,omitempty"`
}
