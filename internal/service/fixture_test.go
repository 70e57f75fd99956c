package service_test

import (
	"context"
	"testing"
	"time"

	"parkcore/internal/dto"
	"parkcore/internal/model"
	"parkcore/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memStore
	quota    *stubQuota
	reports  *recordingReports
	sessions service.SessionService
	payments service.PaymentService
	debts    service.DebtService
	shifts   service.ShiftService
	pricing  service.PricingService
	ops      service.OperatorService

	operator model.Operator
	sector   model.Sector
	street   model.Street
	profile  model.PricingProfile
	rule     model.PricingRule
	discount model.DiscountRule
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

// newFixture wires every service over one in-memory store and seeds an
// assigned operator and a sector priced at 50/min with a 500 minimum.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMemStore()
	f := &fixture{store: st, quota: &stubQuota{denied: map[string]bool{}}, reports: &recordingReports{}}

	sessions, sales, payments := memSessions{st}, memSales{st}, memPayments{st}
	debts, shifts := memDebts{st}, memShifts{st}
	saleCfg := service.SaleSettings{DocType: "boleta", TaxRate: dec("0.19")}

	shortfall := service.NewShortfallOpener(debts)
	guard := service.NewIdempotencyGuard(memIdempotency{st})
	f.payments = service.NewPaymentService(payments, sales, sessions, shifts, shortfall, guard)
	f.sessions = service.NewSessionService(sessions, sales, memOperators{st}, memSectors{st}, memPricing{st}, payments, f.quota, saleCfg)
	f.debts = service.NewDebtService(debts, sessions, sales, f.payments, shortfall, saleCfg)
	f.shifts = service.NewShiftService(shifts, payments, sales, f.reports)
	f.pricing = service.NewPricingService(memPricing{st}, memSectors{st}, f.quota)
	f.ops = service.NewOperatorService(memOperators{st}, memSectors{st}, f.quota)

	f.operator = model.Operator{ID: uuid.New(), Username: "op1", Name: "Operator One", Role: model.RoleOperator, Active: true}
	st.operators[f.operator.ID] = f.operator
	f.sector = model.Sector{ID: uuid.New(), Name: "Centro", Active: true}
	st.sectors[f.sector.ID] = f.sector
	f.street = model.Street{ID: uuid.New(), SectorID: f.sector.ID, Name: "Prat"}
	st.streets[f.street.ID] = f.street
	st.assignments = append(st.assignments, model.OperatorAssignment{
		ID: uuid.New(), OperatorID: f.operator.ID, SectorID: f.sector.ID,
		ValidFrom: time.Now().Add(-24 * time.Hour),
	})

	f.profile = model.PricingProfile{
		ID: uuid.New(), SectorID: f.sector.ID, Name: "Standard", Active: true,
		ActiveFrom: time.Now().Add(-30 * 24 * time.Hour),
	}
	st.profiles[f.profile.ID] = f.profile
	f.rule = model.PricingRule{
		ID: uuid.New(), ProfileID: f.profile.ID, Name: "Per minute",
		PricePerMinute: dec("50"), MinimumAmount: dec("500"), Active: true,
	}
	st.rules = append(st.rules, f.rule)
	f.discount = model.DiscountRule{
		ID: uuid.New(), ProfileID: f.profile.ID, Name: "Resident", Kind: model.DiscountPercent,
		Value: dec("100"), Active: true,
	}
	st.discounts = append(st.discounts, f.discount)
	return f
}

// seedSession stores an ACTIVE session that started the given duration ago.
func (f *fixture) seedSession(plate string, ago time.Duration) model.ParkingSession {
	s := model.ParkingSession{
		ID:           uuid.New(),
		Plate:        plate,
		SectorID:     f.sector.ID,
		OperatorInID: f.operator.ID,
		StartedAt:    time.Now().Add(-ago).Truncate(time.Second),
		Status:       model.SessionActive,
	}
	f.store.sessions[s.ID] = s
	return s
}

// checkout checks a seeded session out exactly minutes after its start.
func (f *fixture) checkout(t *testing.T, sess model.ParkingSession, minutes int) *dto.CheckoutResponse {
	t.Helper()
	ended := sess.StartedAt.Add(time.Duration(minutes) * time.Minute).UTC().Format(time.RFC3339)
	resp, err := f.sessions.Checkout(context.Background(), f.operator.ID, sess.ID, dto.CheckoutRequest{EndedAt: ended})
	require.NoError(t, err)
	return resp
}

func (f *fixture) openShift(t *testing.T, float string) dto.ShiftResponse {
	t.Helper()
	resp, err := f.shifts.Open(context.Background(), f.operator.ID, dto.OpenShiftRequest{OpeningFloat: dec(float)})
	require.NoError(t, err)
	return *resp
}

func (f *fixture) pay(t *testing.T, saleID, shiftID, method, amount string, final bool) *dto.PaymentResponse {
	t.Helper()
	req := dto.RecordPaymentRequest{SaleID: &saleID, Method: method, Amount: dec(amount), FinalPayment: final}
	if shiftID != "" {
		req.ShiftID = &shiftID
	}
	resp, err := f.payments.Record(context.Background(), f.operator.ID, req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) sessionStatus(t *testing.T, id uuid.UUID) string {
	t.Helper()
	s, ok := f.store.sessions[id]
	require.True(t, ok)
	return s.Status
}

func mustID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
