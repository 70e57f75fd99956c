package repository

import (
	"context"

	"parkcore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRepository is append-only: payments are never updated or deleted.
type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.Payment) error
	// SumCompletedBySale sums every completed payment of the sale, across all shifts.
	SumCompletedBySale(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error)
	SumCompletedBySales(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	ListByShift(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID) ([]model.Payment, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]model.Payment, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Payment, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Payment) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *paymentRepo) SumCompletedBySale(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := conn(ctx, r.db, tx).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("sale_id = ? AND status = ?", saleID, model.PaymentCompleted).
		Scan(&sum).Error
	return sum, err
}

func (r *paymentRepo) SumCompletedBySales(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		SaleID uuid.UUID
		Total  decimal.Decimal
	}
	err := conn(ctx, r.db, tx).Model(&model.Payment{}).
		Select("sale_id, COALESCE(SUM(amount), 0) AS total").
		Where("sale_id IN ? AND status = ?", saleIDs, model.PaymentCompleted).
		Group("sale_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SaleID] = row.Total
	}
	return out, nil
}

func (r *paymentRepo) ListByShift(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID) ([]model.Payment, error) {
	var ps []model.Payment
	err := conn(ctx, r.db, tx).Where("shift_id = ?", shiftID).Order("paid_at ASC").Find(&ps).Error
	return ps, err
}

func (r *paymentRepo) ListBySale(ctx context.Context, saleID uuid.UUID) ([]model.Payment, error) {
	var ps []model.Payment
	err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).Order("paid_at ASC").Find(&ps).Error
	return ps, err
}

func (r *paymentRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Payment, error) {
	var ps []model.Payment
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("paid_at ASC").Find(&ps).Error
	return ps, err
}
