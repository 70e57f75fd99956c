package repository

import (
	"context"

	"parkcore/internal/apperr"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShiftRepository interface {
	// Create fails with ErrShiftAlreadyOpen when the operator already has an
	// open shift on the same device.
	Create(ctx context.Context, tx *gorm.DB, s *model.Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Shift, error)
	FindOpen(ctx context.Context, operatorID uuid.UUID, deviceID *string) (*model.Shift, error)
	Update(ctx context.Context, tx *gorm.DB, s *model.Shift) error
	History(ctx context.Context, operatorID *uuid.UUID, page, limit int) ([]model.Shift, int64, error)
	CreateOperation(ctx context.Context, tx *gorm.DB, op *model.ShiftOperation) error
	ListOperations(ctx context.Context, shiftID uuid.UUID) ([]model.ShiftOperation, error)
	CreateAdjustment(ctx context.Context, tx *gorm.DB, a *model.CashAdjustment) error
	ListAdjustments(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID) ([]model.CashAdjustment, error)
	DB() *gorm.DB
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) DB() *gorm.DB { return r.db }

func (r *shiftRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Shift) error {
	err := conn(ctx, r.db, tx).Create(s).Error
	if isUniqueViolation(err) {
		return apperr.ErrShiftAlreadyOpen
	}
	return err
}

func (r *shiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "shift", id)
	}
	return &s, nil
}

func (r *shiftRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	if err := conn(ctx, r.db, tx).Clauses(forUpdate).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "shift", id)
	}
	return &s, nil
}

func (r *shiftRepo) FindOpen(ctx context.Context, operatorID uuid.UUID, deviceID *string) (*model.Shift, error) {
	device := ""
	if deviceID != nil {
		device = *deviceID
	}
	var s model.Shift
	err := r.db.WithContext(ctx).
		Where("operator_id = ? AND COALESCE(device_id, '') = ? AND status = ?", operatorID, device, model.ShiftOpen).
		First(&s).Error
	if err != nil {
		return nil, notFound(err, "open shift for operator", operatorID)
	}
	return &s, nil
}

func (r *shiftRepo) Update(ctx context.Context, tx *gorm.DB, s *model.Shift) error {
	return conn(ctx, r.db, tx).Save(s).Error
}

func (r *shiftRepo) History(ctx context.Context, operatorID *uuid.UUID, page, limit int) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Shift{}).Where("status <> ?", model.ShiftOpen)
	if operatorID != nil {
		q = q.Where("operator_id = ?", *operatorID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&shifts).Error
	return shifts, total, err
}

func (r *shiftRepo) CreateOperation(ctx context.Context, tx *gorm.DB, op *model.ShiftOperation) error {
	return conn(ctx, r.db, tx).Create(op).Error
}

func (r *shiftRepo) ListOperations(ctx context.Context, shiftID uuid.UUID) ([]model.ShiftOperation, error) {
	var ops []model.ShiftOperation
	err := r.db.WithContext(ctx).Where("shift_id = ?", shiftID).Order("created_at ASC").Find(&ops).Error
	return ops, err
}

func (r *shiftRepo) CreateAdjustment(ctx context.Context, tx *gorm.DB, a *model.CashAdjustment) error {
	return conn(ctx, r.db, tx).Create(a).Error
}

func (r *shiftRepo) ListAdjustments(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID) ([]model.CashAdjustment, error) {
	var as []model.CashAdjustment
	err := conn(ctx, r.db, tx).Where("shift_id = ?", shiftID).Order("created_at ASC").Find(&as).Error
	return as, err
}
