package repository

import (
	"context"

	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DebtRepository interface {
	Create(ctx context.Context, tx *gorm.DB, d *model.Debt) error
	// CreateShortfall inserts a shortfall debt unless the session already has a
	// pending one; created is false when the insert was skipped.
	CreateShortfall(ctx context.Context, tx *gorm.DB, d *model.Debt) (created bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Debt, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Debt, error)
	// FindPendingShortfallForUpdate locks the session's pending shortfall
	// debt. It returns nil, nil when there is none.
	FindPendingShortfallForUpdate(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*model.Debt, error)
	Update(ctx context.Context, tx *gorm.DB, d *model.Debt) error
	ListByPlate(ctx context.Context, plate, status string) ([]model.Debt, error)
}

type debtRepo struct{ db *gorm.DB }

func NewDebtRepository(db *gorm.DB) DebtRepository { return &debtRepo{db: db} }

func (r *debtRepo) Create(ctx context.Context, tx *gorm.DB, d *model.Debt) error {
	return conn(ctx, r.db, tx).Create(d).Error
}

func (r *debtRepo) CreateShortfall(ctx context.Context, tx *gorm.DB, d *model.Debt) (bool, error) {
	res := conn(ctx, r.db, tx).Clauses(clause.OnConflict{DoNothing: true}).Create(d)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *debtRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	var d model.Debt
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "debt", id)
	}
	return &d, nil
}

func (r *debtRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Debt, error) {
	var d model.Debt
	if err := conn(ctx, r.db, tx).Clauses(forUpdate).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "debt", id)
	}
	return &d, nil
}

func (r *debtRepo) FindPendingShortfallForUpdate(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*model.Debt, error) {
	var ds []model.Debt
	err := conn(ctx, r.db, tx).Clauses(forUpdate).
		Where("session_id = ? AND origin = ? AND status = ?", sessionID, model.OriginShortfall, model.DebtPending).
		Limit(1).Find(&ds).Error
	if err != nil || len(ds) == 0 {
		return nil, err
	}
	return &ds[0], nil
}

func (r *debtRepo) Update(ctx context.Context, tx *gorm.DB, d *model.Debt) error {
	return conn(ctx, r.db, tx).Save(d).Error
}

func (r *debtRepo) ListByPlate(ctx context.Context, plate, status string) ([]model.Debt, error) {
	var ds []model.Debt
	q := r.db.WithContext(ctx).Where("plate = ?", plate)
	if status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Find(&ds).Error
	return ds, err
}
