package repository

import (
	"context"
	"errors"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PricingRepository interface {
	CreateProfile(ctx context.Context, p *model.PricingProfile) error
	FindProfile(ctx context.Context, id uuid.UUID) (*model.PricingProfile, error)
	// FindActiveProfile returns the most recent profile of a sector active at t,
	// with its active rules and discounts loaded.
	FindActiveProfile(ctx context.Context, sectorID uuid.UUID, t time.Time) (*model.PricingProfile, error)
	ListProfiles(ctx context.Context, sectorID uuid.UUID) ([]model.PricingProfile, error)
	AddRule(ctx context.Context, rule *model.PricingRule) error
	AddDiscount(ctx context.Context, d *model.DiscountRule) error
}

type pricingRepo struct{ db *gorm.DB }

func NewPricingRepository(db *gorm.DB) PricingRepository { return &pricingRepo{db: db} }

func (r *pricingRepo) CreateProfile(ctx context.Context, p *model.PricingProfile) error {
	return r.db.WithContext(ctx).Omit("Rules", "Discounts").Create(p).Error
}

func (r *pricingRepo) withRules(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = true").Order("priority ASC, min_duration_minutes ASC")
		}).
		Preload("Discounts", "active = true")
}

func (r *pricingRepo) FindProfile(ctx context.Context, id uuid.UUID) (*model.PricingProfile, error) {
	var p model.PricingProfile
	if err := r.withRules(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "pricing profile", id)
	}
	return &p, nil
}

func (r *pricingRepo) FindActiveProfile(ctx context.Context, sectorID uuid.UUID, t time.Time) (*model.PricingProfile, error) {
	var p model.PricingProfile
	err := r.withRules(ctx).
		Where("sector_id = ? AND active = true AND active_from <= ? AND (active_to IS NULL OR active_to > ?)", sectorID, t, t).
		Order("active_from DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNoActiveTariff.WithDetail("sector %s has no active pricing profile", sectorID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pricingRepo) ListProfiles(ctx context.Context, sectorID uuid.UUID) ([]model.PricingProfile, error) {
	var ps []model.PricingProfile
	err := r.withRules(ctx).Where("sector_id = ?", sectorID).Order("active_from DESC").Find(&ps).Error
	return ps, err
}

func (r *pricingRepo) AddRule(ctx context.Context, rule *model.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *pricingRepo) AddDiscount(ctx context.Context, d *model.DiscountRule) error {
	return r.db.WithContext(ctx).Create(d).Error
}
