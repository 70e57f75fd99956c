package service

import (
	"context"
	"strings"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/infra"
	"parkcore/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// QuotaChecker is the plan capability check run before creating sessions,
// operators and pricing entities. infra.QuotaClient and infra.AllowAllQuota
// implement it.
type QuotaChecker interface {
	CanCreate(ctx context.Context, resourceKind string) (*infra.QuotaDecision, error)
}

// checkQuota blocks the operation on a denied check and fails closed when the
// collaborator itself fails.
func checkQuota(ctx context.Context, q QuotaChecker, kind string) error {
	if q == nil {
		return nil
	}
	d, err := q.CanCreate(ctx, kind)
	if err != nil {
		log.Warn().Err(err).Str("resource", kind).Msg("quota check failed")
		return apperr.ErrExternalDependency.WithDetail("quota check for %s", kind).Wrap(err)
	}
	if !d.Allowed {
		metrics.QuotaDenials.WithLabelValues(kind).Inc()
		return apperr.ErrQuotaExceeded.WithDetail("%s limit reached (%d/%d)", kind, d.Current, d.Limit)
	}
	return nil
}

type actorKey struct{}

// WithActor stores the authenticated operator id in ctx.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the operator id stored by WithActor, or uuid.Nil.
func ActorFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// normalizePlate upper-cases a plate and strips separators.
func normalizePlate(plate string) string {
	r := strings.NewReplacer(" ", "", "-", "", ".", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(plate)))
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.ErrInvalidInput.WithDetail("%s is not a valid id", field)
	}
	return id, nil
}

func parseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseTime parses an RFC 3339 timestamp, returning fallback when raw is empty.
func parseTime(field, raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.ErrInvalidInput.WithDetail("%s must be RFC 3339", field)
	}
	return t, nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
