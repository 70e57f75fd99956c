package repository

import (
	"context"
	"time"

	"parkcore/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdempotencyRepository interface {
	// Claim inserts rec if its key is absent. claimed is false when another
	// caller already owns the key; the insert then blocks until that caller's
	// transaction finishes.
	Claim(ctx context.Context, tx *gorm.DB, rec *model.IdempotencyRecord) (claimed bool, err error)
	Find(ctx context.Context, tx *gorm.DB, key string) (*model.IdempotencyRecord, error)
	Complete(ctx context.Context, tx *gorm.DB, key string, result datatypes.JSON, at time.Time) error
	DB() *gorm.DB
}

type idempotencyRepo struct{ db *gorm.DB }

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository { return &idempotencyRepo{db: db} }

func (r *idempotencyRepo) DB() *gorm.DB { return r.db }

func (r *idempotencyRepo) Claim(ctx context.Context, tx *gorm.DB, rec *model.IdempotencyRecord) (bool, error) {
	res := conn(ctx, r.db, tx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *idempotencyRepo) Find(ctx context.Context, tx *gorm.DB, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	if err := conn(ctx, r.db, tx).First(&rec, "key = ?", key).Error; err != nil {
		return nil, notFound(err, "idempotency key", key)
	}
	return &rec, nil
}

func (r *idempotencyRepo) Complete(ctx context.Context, tx *gorm.DB, key string, result datatypes.JSON, at time.Time) error {
	return conn(ctx, r.db, tx).Model(&model.IdempotencyRecord{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"status":       model.IdempotencyCompleted,
			"result":       result,
			"completed_at": at,
		}).Error
}
