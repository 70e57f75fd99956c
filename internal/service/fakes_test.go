package service_test

import (
	"context"
	"sort"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ── In-memory store ──────────────────────────────────────────────────────────
// Rows are stored by value and copied on read, like a database would. The
// uniqueness rules the schema enforces with indexes are enforced on insert.

type memStore struct {
	operators   map[uuid.UUID]model.Operator
	assignments []model.OperatorAssignment
	sectors     map[uuid.UUID]model.Sector
	streets     map[uuid.UUID]model.Street
	profiles    map[uuid.UUID]model.PricingProfile
	rules       []model.PricingRule
	discounts   []model.DiscountRule
	sessions    map[uuid.UUID]model.ParkingSession
	sales       map[uuid.UUID]model.Sale
	payments    []model.Payment
	debts       map[uuid.UUID]model.Debt
	shifts      map[uuid.UUID]model.Shift
	operations  []model.ShiftOperation
	adjustments []model.CashAdjustment
	idempotency map[string]model.IdempotencyRecord

	// statusLog lists every status a session was saved with, in order.
	statusLog map[uuid.UUID][]string
}

func newMemStore() *memStore {
	return &memStore{
		operators:   make(map[uuid.UUID]model.Operator),
		sectors:     make(map[uuid.UUID]model.Sector),
		streets:     make(map[uuid.UUID]model.Street),
		profiles:    make(map[uuid.UUID]model.PricingProfile),
		sessions:    make(map[uuid.UUID]model.ParkingSession),
		sales:       make(map[uuid.UUID]model.Sale),
		debts:       make(map[uuid.UUID]model.Debt),
		shifts:      make(map[uuid.UUID]model.Shift),
		idempotency: make(map[string]model.IdempotencyRecord),
		statusLog:   make(map[uuid.UUID][]string),
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// ── Operators / sectors ──────────────────────────────────────────────────────

type memOperators struct{ *memStore }

func (r memOperators) Create(_ context.Context, o *model.Operator) error {
	for _, existing := range r.operators {
		if existing.Username == o.Username {
			return apperr.ErrUniqueViolation.WithDetail("username %q already exists", o.Username)
		}
	}
	ensureID(&o.ID)
	r.operators[o.ID] = *o
	return nil
}

func (r memOperators) FindByUsername(_ context.Context, username string) (*model.Operator, error) {
	for _, o := range r.operators {
		if o.Username == username && o.Active {
			cp := o
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("operator", username)
}

func (r memOperators) FindByID(_ context.Context, id uuid.UUID) (*model.Operator, error) {
	o, ok := r.operators[id]
	if !ok {
		return nil, apperr.NotFound("operator", id)
	}
	return &o, nil
}

func (r memOperators) List(_ context.Context) ([]model.Operator, error) {
	out := make([]model.Operator, 0, len(r.operators))
	for _, o := range r.operators {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r memOperators) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	o, ok := r.operators[id]
	if !ok {
		return apperr.NotFound("operator", id)
	}
	o.Active = active
	r.operators[id] = o
	return nil
}

func (r memOperators) CreateAssignment(_ context.Context, a *model.OperatorAssignment) error {
	ensureID(&a.ID)
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r memOperators) ListAssignments(_ context.Context, operatorID uuid.UUID, t time.Time) ([]model.OperatorAssignment, error) {
	var out []model.OperatorAssignment
	for _, a := range r.assignments {
		if a.OperatorID != operatorID || t.Before(a.ValidFrom) {
			continue
		}
		if a.ValidTo != nil && !t.Before(*a.ValidTo) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type memSectors struct{ *memStore }

func (r memSectors) Create(_ context.Context, s *model.Sector) error {
	ensureID(&s.ID)
	r.sectors[s.ID] = *s
	return nil
}

func (r memSectors) FindByID(_ context.Context, id uuid.UUID) (*model.Sector, error) {
	s, ok := r.sectors[id]
	if !ok {
		return nil, apperr.NotFound("sector", id)
	}
	return &s, nil
}

func (r memSectors) List(_ context.Context) ([]model.Sector, error) {
	out := make([]model.Sector, 0, len(r.sectors))
	for _, s := range r.sectors {
		out = append(out, s)
	}
	return out, nil
}

func (r memSectors) CreateStreet(_ context.Context, s *model.Street) error {
	ensureID(&s.ID)
	r.streets[s.ID] = *s
	return nil
}

func (r memSectors) FindStreet(_ context.Context, id uuid.UUID) (*model.Street, error) {
	s, ok := r.streets[id]
	if !ok {
		return nil, apperr.NotFound("street", id)
	}
	return &s, nil
}

// ── Pricing ──────────────────────────────────────────────────────────────────

type memPricing struct{ *memStore }

func (r memPricing) CreateProfile(_ context.Context, p *model.PricingProfile) error {
	ensureID(&p.ID)
	cp := *p
	cp.Rules, cp.Discounts = nil, nil
	r.profiles[p.ID] = cp
	return nil
}

func (r memPricing) load(p model.PricingProfile) *model.PricingProfile {
	p.Rules, p.Discounts = nil, nil
	for _, rule := range r.rules {
		if rule.ProfileID == p.ID && rule.Active {
			p.Rules = append(p.Rules, rule)
		}
	}
	for _, d := range r.discounts {
		if d.ProfileID == p.ID && d.Active {
			p.Discounts = append(p.Discounts, d)
		}
	}
	return &p
}

func (r memPricing) FindProfile(_ context.Context, id uuid.UUID) (*model.PricingProfile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, apperr.NotFound("pricing profile", id)
	}
	return r.load(p), nil
}

func (r memPricing) FindActiveProfile(_ context.Context, sectorID uuid.UUID, t time.Time) (*model.PricingProfile, error) {
	var best *model.PricingProfile
	for _, p := range r.profiles {
		if p.SectorID != sectorID || !p.ActiveAt(t) {
			continue
		}
		if best == nil || p.ActiveFrom.After(best.ActiveFrom) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return nil, apperr.ErrNoActiveTariff.WithDetail("sector %s has no active pricing profile", sectorID)
	}
	return r.load(*best), nil
}

func (r memPricing) ListProfiles(_ context.Context, sectorID uuid.UUID) ([]model.PricingProfile, error) {
	var out []model.PricingProfile
	for _, p := range r.profiles {
		if p.SectorID == sectorID {
			out = append(out, *r.load(p))
		}
	}
	return out, nil
}

func (r memPricing) AddRule(_ context.Context, rule *model.PricingRule) error {
	ensureID(&rule.ID)
	r.rules = append(r.rules, *rule)
	return nil
}

func (r memPricing) AddDiscount(_ context.Context, d *model.DiscountRule) error {
	ensureID(&d.ID)
	r.discounts = append(r.discounts, *d)
	return nil
}

// ── Sessions / sales ─────────────────────────────────────────────────────────

type memSessions struct{ *memStore }

func (r memSessions) DB() *gorm.DB { return nil }

func (r memSessions) Create(_ context.Context, _ *gorm.DB, s *model.ParkingSession) error {
	for _, existing := range r.sessions {
		if existing.Status == model.SessionActive && existing.Plate == s.Plate && existing.SectorID == s.SectorID {
			return apperr.ErrActiveSessionExists
		}
	}
	ensureID(&s.ID)
	r.sessions[s.ID] = *s
	return nil
}

func (r memSessions) FindByID(_ context.Context, id uuid.UUID) (*model.ParkingSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session", id)
	}
	return &s, nil
}

func (r memSessions) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.ParkingSession, error) {
	return r.FindByID(ctx, id)
}

func (r memSessions) Update(_ context.Context, _ *gorm.DB, s *model.ParkingSession) error {
	r.sessions[s.ID] = *s
	if seen := r.statusLog[s.ID]; len(seen) == 0 || seen[len(seen)-1] != s.Status {
		r.statusLog[s.ID] = append(seen, s.Status)
	}
	return nil
}

func (r memSessions) ListByPlate(_ context.Context, plate string) ([]model.ParkingSession, error) {
	var out []model.ParkingSession
	for _, s := range r.sessions {
		if s.Plate == plate {
			out = append(out, s)
		}
	}
	return out, nil
}

type memSales struct{ *memStore }

func (r memSales) Create(_ context.Context, _ *gorm.DB, s *model.Sale) error {
	if s.SessionID != nil {
		for _, existing := range r.sales {
			if existing.SessionID != nil && *existing.SessionID == *s.SessionID {
				return apperr.ErrSaleAlreadyExists
			}
		}
	}
	ensureID(&s.ID)
	r.sales[s.ID] = *s
	return nil
}

func (r memSales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, apperr.NotFound("sale", id)
	}
	return &s, nil
}

func (r memSales) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r memSales) FindBySession(_ context.Context, _ *gorm.DB, sessionID uuid.UUID) (*model.Sale, error) {
	for _, s := range r.sales {
		if s.SessionID != nil && *s.SessionID == sessionID {
			return &s, nil
		}
	}
	return nil, nil
}

func (r memSales) FindByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]model.Sale, error) {
	var out []model.Sale
	for _, id := range ids {
		if s, ok := r.sales[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r memSales) MarkIssued(_ context.Context, _ *gorm.DB, id uuid.UUID, at time.Time) error {
	s, ok := r.sales[id]
	if !ok {
		return apperr.NotFound("sale", id)
	}
	if s.IssuedAt == nil {
		s.IssuedAt = &at
		r.sales[id] = s
	}
	return nil
}

// ── Payments ─────────────────────────────────────────────────────────────────

type memPayments struct{ *memStore }

func (r memPayments) Create(_ context.Context, _ *gorm.DB, p *model.Payment) error {
	ensureID(&p.ID)
	r.payments = append(r.payments, *p)
	return nil
}

func (r memPayments) SumCompletedBySale(_ context.Context, _ *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.SaleID != nil && *p.SaleID == saleID && p.Status == model.PaymentCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r memPayments) SumCompletedBySales(ctx context.Context, tx *gorm.DB, saleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(saleIDs))
	for _, id := range saleIDs {
		out[id], _ = r.SumCompletedBySale(ctx, tx, id)
	}
	return out, nil
}

func (r memPayments) ListByShift(_ context.Context, _ *gorm.DB, shiftID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.payments {
		if p.ShiftID != nil && *p.ShiftID == shiftID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPayments) ListBySale(_ context.Context, saleID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.payments {
		if p.SaleID != nil && *p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPayments) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.payments {
		if p.SessionID != nil && *p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ── Debts ────────────────────────────────────────────────────────────────────

type memDebts struct{ *memStore }

func (r memDebts) Create(_ context.Context, _ *gorm.DB, d *model.Debt) error {
	ensureID(&d.ID)
	r.debts[d.ID] = *d
	return nil
}

func (r memDebts) CreateShortfall(ctx context.Context, tx *gorm.DB, d *model.Debt) (bool, error) {
	for _, existing := range r.debts {
		if existing.Origin == model.OriginShortfall && existing.Status == model.DebtPending &&
			existing.SessionID != nil && d.SessionID != nil && *existing.SessionID == *d.SessionID {
			return false, nil
		}
	}
	return true, r.Create(ctx, tx, d)
}

func (r memDebts) FindByID(_ context.Context, id uuid.UUID) (*model.Debt, error) {
	d, ok := r.debts[id]
	if !ok {
		return nil, apperr.NotFound("debt", id)
	}
	return &d, nil
}

func (r memDebts) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Debt, error) {
	return r.FindByID(ctx, id)
}

func (r memDebts) FindPendingShortfallForUpdate(_ context.Context, _ *gorm.DB, sessionID uuid.UUID) (*model.Debt, error) {
	for _, d := range r.debts {
		if d.Origin == model.OriginShortfall && d.Status == model.DebtPending &&
			d.SessionID != nil && *d.SessionID == sessionID {
			return &d, nil
		}
	}
	return nil, nil
}

func (r memDebts) Update(_ context.Context, _ *gorm.DB, d *model.Debt) error {
	r.debts[d.ID] = *d
	return nil
}

func (r memDebts) ListByPlate(_ context.Context, plate, status string) ([]model.Debt, error) {
	var out []model.Debt
	for _, d := range r.debts {
		if d.Plate == plate && (status == "" || d.Status == status) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ── Shifts ───────────────────────────────────────────────────────────────────

type memShifts struct{ *memStore }

func (r memShifts) DB() *gorm.DB { return nil }

func deviceKey(d *string) string {
	if d == nil {
		return ""
	}
	return *d
}

func (r memShifts) Create(_ context.Context, _ *gorm.DB, s *model.Shift) error {
	for _, existing := range r.shifts {
		if existing.Status == model.ShiftOpen && existing.OperatorID == s.OperatorID &&
			deviceKey(existing.DeviceID) == deviceKey(s.DeviceID) {
			return apperr.ErrShiftAlreadyOpen
		}
	}
	ensureID(&s.ID)
	r.shifts[s.ID] = *s
	return nil
}

func (r memShifts) FindByID(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, apperr.NotFound("shift", id)
	}
	return &s, nil
}

func (r memShifts) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Shift, error) {
	return r.FindByID(ctx, id)
}

func (r memShifts) FindOpen(_ context.Context, operatorID uuid.UUID, deviceID *string) (*model.Shift, error) {
	for _, s := range r.shifts {
		if s.Status == model.ShiftOpen && s.OperatorID == operatorID && deviceKey(s.DeviceID) == deviceKey(deviceID) {
			return &s, nil
		}
	}
	return nil, apperr.NotFound("open shift for operator", operatorID)
}

func (r memShifts) Update(_ context.Context, _ *gorm.DB, s *model.Shift) error {
	r.shifts[s.ID] = *s
	return nil
}

func (r memShifts) History(_ context.Context, operatorID *uuid.UUID, page, limit int) ([]model.Shift, int64, error) {
	var all []model.Shift
	for _, s := range r.shifts {
		if s.Status == model.ShiftOpen || (operatorID != nil && s.OperatorID != *operatorID) {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OpenedAt.After(all[j].OpenedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r memShifts) CreateOperation(_ context.Context, _ *gorm.DB, op *model.ShiftOperation) error {
	ensureID(&op.ID)
	r.operations = append(r.operations, *op)
	return nil
}

func (r memShifts) ListOperations(_ context.Context, shiftID uuid.UUID) ([]model.ShiftOperation, error) {
	var out []model.ShiftOperation
	for _, op := range r.operations {
		if op.ShiftID == shiftID {
			out = append(out, op)
		}
	}
	return out, nil
}

func (r memShifts) CreateAdjustment(_ context.Context, _ *gorm.DB, a *model.CashAdjustment) error {
	ensureID(&a.ID)
	r.adjustments = append(r.adjustments, *a)
	return nil
}

func (r memShifts) ListAdjustments(_ context.Context, _ *gorm.DB, shiftID uuid.UUID) ([]model.CashAdjustment, error) {
	var out []model.CashAdjustment
	for _, a := range r.adjustments {
		if a.ShiftID == shiftID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ── Idempotency ──────────────────────────────────────────────────────────────

type memIdempotency struct{ *memStore }

func (r memIdempotency) DB() *gorm.DB { return nil }

func (r memIdempotency) Claim(_ context.Context, _ *gorm.DB, rec *model.IdempotencyRecord) (bool, error) {
	if _, ok := r.idempotency[rec.Key]; ok {
		return false, nil
	}
	r.idempotency[rec.Key] = *rec
	return true, nil
}

func (r memIdempotency) Find(_ context.Context, _ *gorm.DB, key string) (*model.IdempotencyRecord, error) {
	rec, ok := r.idempotency[key]
	if !ok {
		return nil, apperr.NotFound("idempotency key", key)
	}
	return &rec, nil
}

func (r memIdempotency) Complete(_ context.Context, _ *gorm.DB, key string, result datatypes.JSON, at time.Time) error {
	rec := r.idempotency[key]
	rec.Status = model.IdempotencyCompleted
	rec.Result = result
	rec.CompletedAt = &at
	r.idempotency[key] = rec
	return nil
}

// ── Collaborator stubs ───────────────────────────────────────────────────────

type stubQuota struct {
	denied map[string]bool
	err    error
	calls  []string
}

func (q *stubQuota) CanCreate(_ context.Context, kind string) (*infra.QuotaDecision, error) {
	q.calls = append(q.calls, kind)
	if q.err != nil {
		return nil, q.err
	}
	if q.denied[kind] {
		return &infra.QuotaDecision{Allowed: false, Current: 10, Limit: 10}, nil
	}
	return &infra.QuotaDecision{Allowed: true, Current: 1, Limit: 10}, nil
}

type recordingReports struct {
	summaries []dto.ShiftSummary
}

func (r *recordingReports) EnqueueShiftReport(_ context.Context, s dto.ShiftSummary) error {
	r.summaries = append(r.summaries, s)
	return nil
}
