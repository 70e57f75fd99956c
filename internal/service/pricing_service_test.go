package service_test

import (
	"context"
	"testing"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
	"parkcore/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestQuote_ByMinutes(t *testing.T) {
	f := newFixture(t)

	q, err := f.pricing.Quote(context.Background(), dto.QuoteRequest{SectorID: f.sector.ID.String(), Minutes: intPtr(20)})
	require.NoError(t, err)
	assert.Equal(t, 20, q.Minutes)
	assert.Equal(t, f.rule.ID.String(), q.RuleID)
	assert.True(t, dec("1000").Equal(q.Gross))
	assert.True(t, dec("1000").Equal(q.Net))
	assert.True(t, q.Discount.IsZero())
}

func TestQuote_ByTimestampsWithDiscount(t *testing.T) {
	f := newFixture(t)
	discount := f.discount.ID.String()
	start := time.Now().Add(-time.Hour).Truncate(time.Second)

	q, err := f.pricing.Quote(context.Background(), dto.QuoteRequest{
		SectorID:       f.sector.ID.String(),
		StartedAt:      start.Format(time.RFC3339),
		EndedAt:        start.Add(3*time.Minute + time.Second).Format(time.RFC3339),
		DiscountRuleID: &discount,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, q.Minutes)
	assert.True(t, q.MinimumApplied)
	assert.True(t, dec("500").Equal(q.Gross))
	assert.True(t, q.Net.IsZero())
}

func TestQuote_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pricing.Quote(ctx, dto.QuoteRequest{SectorID: f.sector.ID.String()})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.pricing.Quote(ctx, dto.QuoteRequest{
		SectorID: f.sector.ID.String(), StartedAt: "2026-03-02T10:00:00Z", EndedAt: "2026-03-02T09:00:00Z",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAddRule_RejectsInvertedRange(t *testing.T) {
	f := newFixture(t)

	_, err := f.pricing.AddRule(context.Background(), f.profile.ID, dto.CreateRuleRequest{
		Name: "Broken", MinDurationMinutes: 60, MaxDurationMinutes: intPtr(30),
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Len(t, f.store.rules, 1)
}

func TestAddRule_QuotaDenied(t *testing.T) {
	f := newFixture(t)
	f.quota.denied[infra.ResourcePricingRule] = true

	_, err := f.pricing.AddRule(context.Background(), f.profile.ID, dto.CreateRuleRequest{
		Name: "Night", PricePerMinute: dec("20"),
	})
	assert.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))
	assert.Len(t, f.store.rules, 1)
}

func TestAddDiscount_PercentAboveHundred(t *testing.T) {
	f := newFixture(t)

	_, err := f.pricing.AddDiscount(context.Background(), f.profile.ID, dto.CreateDiscountRequest{
		Name: "Too much", Kind: model.DiscountPercent, Value: dec("120"),
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateProfile_ListedWithRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.pricing.CreateProfile(ctx, dto.CreateProfileRequest{
		SectorID: f.sector.ID.String(), Name: "Weekend", ActiveFrom: "2026-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, []string{infra.ResourcePricingProfile}, f.quota.calls)

	ps, err := f.pricing.ListProfiles(ctx, f.sector.ID)
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}
