package service

import (
	"context"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
	"parkcore/internal/model"
	"parkcore/internal/repository"
	"parkcore/internal/tariff"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type PricingService interface {
	CreateProfile(ctx context.Context, req dto.CreateProfileRequest) (*dto.ProfileResponse, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*dto.ProfileResponse, error)
	ListProfiles(ctx context.Context, sectorID uuid.UUID) ([]dto.ProfileResponse, error)
	AddRule(ctx context.Context, profileID uuid.UUID, req dto.CreateRuleRequest) (*dto.RuleResponse, error)
	AddDiscount(ctx context.Context, profileID uuid.UUID, req dto.CreateDiscountRequest) (*dto.DiscountResponse, error)
	// Quote prices a duration against the sector's active profile without
	// touching any session.
	Quote(ctx context.Context, req dto.QuoteRequest) (*dto.QuoteResponse, error)
}

type pricingService struct {
	repo    repository.PricingRepository
	sectors repository.SectorRepository
	quota   QuotaChecker
	now     func() time.Time
}

func NewPricingService(repo repository.PricingRepository, sectors repository.SectorRepository, quota QuotaChecker) PricingService {
	return &pricingService{repo: repo, sectors: sectors, quota: quota, now: time.Now}
}

func (s *pricingService) CreateProfile(ctx context.Context, req dto.CreateProfileRequest) (*dto.ProfileResponse, error) {
	sectorID, err := parseID("sector_id", req.SectorID)
	if err != nil {
		return nil, err
	}
	from, err := parseTime("active_from", req.ActiveFrom, s.now())
	if err != nil {
		return nil, err
	}
	var to *time.Time
	if req.ActiveTo != nil && *req.ActiveTo != "" {
		t, err := parseTime("active_to", *req.ActiveTo, time.Time{})
		if err != nil {
			return nil, err
		}
		if !t.After(from) {
			return nil, apperr.ErrInvalidInput.WithDetail("active_to must be after active_from")
		}
		to = &t
	}
	if _, err := s.sectors.FindByID(ctx, sectorID); err != nil {
		return nil, err
	}
	if err := checkQuota(ctx, s.quota, infra.ResourcePricingProfile); err != nil {
		return nil, err
	}

	p := &model.PricingProfile{
		SectorID:   sectorID,
		Name:       req.Name,
		Active:     true,
		ActiveFrom: from,
		ActiveTo:   to,
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("profile_id", p.ID.String()).Str("sector_id", sectorID.String()).Msg("pricing profile created")
	resp := toProfileResponse(p)
	return &resp, nil
}

func (s *pricingService) GetProfile(ctx context.Context, id uuid.UUID) (*dto.ProfileResponse, error) {
	p, err := s.repo.FindProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toProfileResponse(p)
	return &resp, nil
}

func (s *pricingService) ListProfiles(ctx context.Context, sectorID uuid.UUID) ([]dto.ProfileResponse, error) {
	ps, err := s.repo.ListProfiles(ctx, sectorID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ProfileResponse, len(ps))
	for i := range ps {
		resp[i] = toProfileResponse(&ps[i])
	}
	return resp, nil
}

func (s *pricingService) AddRule(ctx context.Context, profileID uuid.UUID, req dto.CreateRuleRequest) (*dto.RuleResponse, error) {
	if req.MaxDurationMinutes != nil && *req.MaxDurationMinutes < req.MinDurationMinutes {
		return nil, apperr.ErrInvalidInput.WithDetail("max_duration_minutes is below min_duration_minutes")
	}
	for field, v := range map[string]decimal.Decimal{
		"price_per_minute": req.PricePerMinute,
		"fixed_price":      req.FixedPrice,
		"minimum_amount":   req.MinimumAmount,
		"daily_maximum":    req.DailyMaximum,
	} {
		if v.IsNegative() {
			return nil, apperr.ErrInvalidAmount.WithDetail("%s cannot be negative", field)
		}
	}
	if _, err := s.repo.FindProfile(ctx, profileID); err != nil {
		return nil, err
	}
	if err := checkQuota(ctx, s.quota, infra.ResourcePricingRule); err != nil {
		return nil, err
	}

	r := &model.PricingRule{
		ProfileID:              profileID,
		Name:                   req.Name,
		MinDurationMinutes:     req.MinDurationMinutes,
		MaxDurationMinutes:     req.MaxDurationMinutes,
		PricePerMinute:         req.PricePerMinute,
		FixedPrice:             req.FixedPrice,
		MinimumAmount:          req.MinimumAmount,
		MinimumIsBase:          req.MinimumIsBase,
		MinimumDurationMinutes: req.MinimumDurationMinutes,
		DailyMaximum:           req.DailyMaximum,
		Priority:               req.Priority,
		Active:                 true,
	}
	if err := s.repo.AddRule(ctx, r); err != nil {
		return nil, err
	}
	resp := toRuleResponse(r)
	return &resp, nil
}

func (s *pricingService) AddDiscount(ctx context.Context, profileID uuid.UUID, req dto.CreateDiscountRequest) (*dto.DiscountResponse, error) {
	if !req.Value.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if req.Kind == model.DiscountPercent && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperr.ErrInvalidInput.WithDetail("percent discounts cannot exceed 100")
	}
	if _, err := s.repo.FindProfile(ctx, profileID); err != nil {
		return nil, err
	}
	d := &model.DiscountRule{
		ProfileID:  profileID,
		Name:       req.Name,
		Kind:       req.Kind,
		Value:      req.Value,
		MinMinutes: req.MinMinutes,
		Active:     true,
	}
	if err := s.repo.AddDiscount(ctx, d); err != nil {
		return nil, err
	}
	return &dto.DiscountResponse{ID: d.ID.String(), Name: d.Name, Kind: d.Kind, Value: d.Value, MinMinutes: d.MinMinutes}, nil
}

// Quote accepts either minutes or a started_at/ended_at pair; ended_at
// defaults to now.
func (s *pricingService) Quote(ctx context.Context, req dto.QuoteRequest) (*dto.QuoteResponse, error) {
	sectorID, err := parseID("sector_id", req.SectorID)
	if err != nil {
		return nil, err
	}
	discountID, err := parseOptionalID("discount_rule_id", req.DiscountRuleID)
	if err != nil {
		return nil, err
	}
	at, err := parseTime("ended_at", req.EndedAt, s.now())
	if err != nil {
		return nil, err
	}

	var minutes int
	switch {
	case req.Minutes != nil:
		minutes = *req.Minutes
	case req.StartedAt != "":
		start, err := parseTime("started_at", req.StartedAt, time.Time{})
		if err != nil {
			return nil, err
		}
		if at.Before(start) {
			return nil, apperr.ErrInvalidInput.WithDetail("ended_at precedes started_at")
		}
		minutes = tariff.BillableMinutes(at.Sub(start))
	default:
		return nil, apperr.ErrInvalidInput.WithDetail("minutes or started_at is required")
	}

	profile, err := s.repo.FindActiveProfile(ctx, sectorID, at)
	if err != nil {
		return nil, err
	}
	b, err := tariff.Quote(profile, at, minutes)
	if err != nil {
		return nil, err
	}
	discount := decimal.Zero
	if discountID != nil {
		rule := findDiscount(profile, *discountID)
		if rule == nil {
			return nil, apperr.NotFound("discount rule", *discountID)
		}
		discount = tariff.Discount(b.Amount, rule, b.Minutes)
	}
	resp := toQuoteResponse(b, discount)
	return &resp, nil
}
