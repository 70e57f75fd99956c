package repository

import (
	"context"
	"errors"

	"parkcore/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// isUniqueViolation matches both the translated gorm error and a raw pgx one,
// since TranslateError is a per-connection option.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// notFound converts gorm.ErrRecordNotFound into a NotFound core error.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// conn returns tx when a transaction is in progress, otherwise the base pool.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

var forUpdate = clause.Locking{Strength: "UPDATE"}
