package repository

import (
	"context"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	// FindBySession returns nil, nil when the session has no sale yet.
	FindBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*model.Sale, error)
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Sale, error)
	// MarkIssued stamps issued_at only if it is still unset.
	MarkIssued(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	err := conn(ctx, r.db, tx).Create(s).Error
	if isUniqueViolation(err) {
		return apperr.ErrSaleAlreadyExists
	}
	return err
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sale", id)
	}
	return &s, nil
}

func (r *saleRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := conn(ctx, r.db, tx).Clauses(forUpdate).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sale", id)
	}
	return &s, nil
}

func (r *saleRepo) FindBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*model.Sale, error) {
	var ss []model.Sale
	if err := conn(ctx, r.db, tx).Where("session_id = ?", sessionID).Limit(1).Find(&ss).Error; err != nil {
		return nil, err
	}
	if len(ss) == 0 {
		return nil, nil
	}
	return &ss[0], nil
}

func (r *saleRepo) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Sale, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ss []model.Sale
	err := conn(ctx, r.db, tx).Where("id IN ?", ids).Find(&ss).Error
	return ss, err
}

func (r *saleRepo) MarkIssued(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return conn(ctx, r.db, tx).Model(&model.Sale{}).
		Where("id = ? AND issued_at IS NULL", id).
		Update("issued_at", at).Error
}
