package service

import (
	"context"
	"encoding/json"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/model"
	"parkcore/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IdempotencyGuard deduplicates externally retried operations by key.
type IdempotencyGuard struct {
	repo repository.IdempotencyRepository
	now  func() time.Time
}

func NewIdempotencyGuard(repo repository.IdempotencyRepository) *IdempotencyGuard {
	return &IdempotencyGuard{repo: repo, now: time.Now}
}

// Execute runs op at most once per key. The key row is claimed with an
// insert-if-absent in the same transaction op writes in, and the result is
// stored before commit; if op fails everything rolls back, the claim included.
//
// A key already completed with the same payload hash returns the stored
// result with replayed=true. A different payload or endpoint is a conflict,
// as is a key whose first execution has not committed yet.
func Execute[T any](ctx context.Context, g *IdempotencyGuard, key, endpoint, payloadHash string, op func(tx *gorm.DB) (T, error)) (T, bool, error) {
	var (
		result   T
		replayed bool
	)
	err := runTx(ctx, g.repo.DB(), func(tx *gorm.DB) error {
		claimed, err := g.repo.Claim(ctx, tx, &model.IdempotencyRecord{
			Key:         key,
			Endpoint:    endpoint,
			PayloadHash: payloadHash,
			Status:      model.IdempotencyPending,
			CreatedAt:   g.now(),
		})
		if err != nil {
			return err
		}

		if !claimed {
			rec, err := g.repo.Find(ctx, tx, key)
			if err != nil {
				return err
			}
			if rec.Endpoint != endpoint || rec.PayloadHash != payloadHash {
				return apperr.ErrIdempotencyConflict
			}
			if rec.Status != model.IdempotencyCompleted {
				return apperr.ErrIdempotencyInFlight
			}
			replayed = true
			return json.Unmarshal(rec.Result, &result)
		}

		res, err := op(tx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(res)
		if err != nil {
			return err
		}
		// decode the stored form so the first answer and every replay are identical
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
		return g.repo.Complete(ctx, tx, key, datatypes.JSON(raw), g.now())
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return result, replayed, nil
}
