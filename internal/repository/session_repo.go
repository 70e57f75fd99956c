package repository

import (
	"context"

	"parkcore/internal/apperr"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	// Create fails with ErrActiveSessionExists when the plate already has an
	// ACTIVE session in the sector; the partial unique index decides.
	Create(ctx context.Context, tx *gorm.DB, s *model.ParkingSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingSession, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ParkingSession, error)
	Update(ctx context.Context, tx *gorm.DB, s *model.ParkingSession) error
	ListByPlate(ctx context.Context, plate string) ([]model.ParkingSession, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, s *model.ParkingSession) error {
	err := conn(ctx, r.db, tx).Create(s).Error
	if isUniqueViolation(err) {
		return apperr.ErrActiveSessionExists.WithDetail("plate %s already has an ACTIVE session in sector %s", s.Plate, s.SectorID)
	}
	return err
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingSession, error) {
	var s model.ParkingSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &s, nil
}

func (r *sessionRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ParkingSession, error) {
	var s model.ParkingSession
	if err := conn(ctx, r.db, tx).Clauses(forUpdate).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &s, nil
}

func (r *sessionRepo) Update(ctx context.Context, tx *gorm.DB, s *model.ParkingSession) error {
	return conn(ctx, r.db, tx).Save(s).Error
}

func (r *sessionRepo) ListByPlate(ctx context.Context, plate string) ([]model.ParkingSession, error) {
	var ss []model.ParkingSession
	err := r.db.WithContext(ctx).Where("plate = ?", plate).Order("started_at DESC").Limit(50).Find(&ss).Error
	return ss, err
}
