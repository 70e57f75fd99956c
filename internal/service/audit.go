package service

import (
	"context"
	"encoding/json"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// AuditEntry describes one mutating call on a core service.
type AuditEntry struct {
	At       time.Time
	ActorID  uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Before   datatypes.JSON
	After    datatypes.JSON
	// ErrCode is empty for successful calls.
	ErrCode string
}

type AuditSink interface {
	Record(ctx context.Context, e AuditEntry)
}

// LogAuditSink writes audit entries as structured log lines.
type LogAuditSink struct {
	logger zerolog.Logger
}

func NewLogAuditSink() *LogAuditSink {
	return &LogAuditSink{logger: log.With().Str("component", "audit").Logger()}
}

func (s *LogAuditSink) Record(_ context.Context, e AuditEntry) {
	ev := s.logger.Info()
	if e.ErrCode != "" {
		ev = s.logger.Warn().Str("error", e.ErrCode)
	}
	ev = ev.Time("at", e.At).
		Str("actor_id", e.ActorID.String()).
		Str("action", e.Action).
		Str("entity", e.Entity).
		Str("entity_id", e.EntityID)
	if len(e.Before) > 0 {
		ev = ev.RawJSON("before", e.Before)
	}
	if len(e.After) > 0 {
		ev = ev.RawJSON("after", e.After)
	}
	ev.Msg("audit")
}

type auditor struct {
	sink AuditSink
	now  func() time.Time
}

func (a auditor) record(ctx context.Context, action, entity, entityID string, before, after any, err error) {
	e := AuditEntry{
		At:       a.now(),
		ActorID:  ActorFrom(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Before:   snapshot(before),
		After:    snapshot(after),
	}
	if err != nil {
		e.ErrCode = apperr.CodeOf(err)
	}
	a.sink.Record(ctx, e)
}

func snapshot(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

// ── Sessions ──────────────────────────────────────────────────────────────────

type auditedSessions struct {
	SessionService
	auditor
}

// WithSessionAudit records every mutating SessionService call to sink.
func WithSessionAudit(inner SessionService, sink AuditSink) SessionService {
	return &auditedSessions{SessionService: inner, auditor: auditor{sink: sink, now: time.Now}}
}

func (s *auditedSessions) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	resp, err := s.SessionService.Open(ctx, operatorID, req)
	id := ""
	if resp != nil {
		id = resp.ID
	}
	s.record(ctx, "session.open", "session", id, nil, resp, err)
	return resp, err
}

func (s *auditedSessions) Checkout(ctx context.Context, operatorID, id uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	before, _ := s.SessionService.Get(ctx, id)
	resp, err := s.SessionService.Checkout(ctx, operatorID, id, req)
	s.record(ctx, "session.checkout", "session", id.String(), before, resp, err)
	return resp, err
}

func (s *auditedSessions) MarkPaid(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	before, _ := s.SessionService.Get(ctx, id)
	resp, err := s.SessionService.MarkPaid(ctx, id)
	s.record(ctx, "session.mark_paid", "session", id.String(), before, resp, err)
	return resp, err
}

func (s *auditedSessions) Close(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	before, _ := s.SessionService.Get(ctx, id)
	resp, err := s.SessionService.Close(ctx, id)
	s.record(ctx, "session.close", "session", id.String(), before, resp, err)
	return resp, err
}

func (s *auditedSessions) Cancel(ctx context.Context, id uuid.UUID, req dto.CancelSessionRequest) (*dto.SessionResponse, error) {
	before, _ := s.SessionService.Get(ctx, id)
	resp, err := s.SessionService.Cancel(ctx, id, req)
	s.record(ctx, "session.cancel", "session", id.String(), before, resp, err)
	return resp, err
}

// ── Payments ──────────────────────────────────────────────────────────────────

type auditedPayments struct {
	PaymentService
	auditor
}

// WithPaymentAudit records payment writes. RecordTx is not audited; it runs
// inside callers that are.
func WithPaymentAudit(inner PaymentService, sink AuditSink) PaymentService {
	return &auditedPayments{PaymentService: inner, auditor: auditor{sink: sink, now: time.Now}}
}

func paymentID(resp *dto.PaymentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.ID
}

func (s *auditedPayments) Record(ctx context.Context, actorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	resp, err := s.PaymentService.Record(ctx, actorID, req)
	s.record(ctx, "payment.record", "payment", paymentID(resp), req, resp, err)
	return resp, err
}

func (s *auditedPayments) RecordDeclined(ctx context.Context, actorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	resp, err := s.PaymentService.RecordDeclined(ctx, actorID, req)
	s.record(ctx, "payment.declined", "payment", paymentID(resp), req, resp, err)
	return resp, err
}

func (s *auditedPayments) ConfirmExternal(ctx context.Context, actorID uuid.UUID, key string, req dto.ConfirmExternalRequest) (*dto.PaymentResponse, bool, error) {
	resp, replayed, err := s.PaymentService.ConfirmExternal(ctx, actorID, key, req)
	action := "payment.confirm_external"
	if replayed {
		action += ".replay"
	}
	s.record(ctx, action, "payment", paymentID(resp), req, resp, err)
	return resp, replayed, err
}

// ── Debts ─────────────────────────────────────────────────────────────────────

type auditedDebts struct {
	DebtService
	auditor
}

func WithDebtAudit(inner DebtService, sink AuditSink) DebtService {
	return &auditedDebts{DebtService: inner, auditor: auditor{sink: sink, now: time.Now}}
}

func (s *auditedDebts) CreateManual(ctx context.Context, req dto.CreateDebtRequest) (*dto.DebtResponse, error) {
	resp, err := s.DebtService.CreateManual(ctx, req)
	id := ""
	if resp != nil {
		id = resp.ID
	}
	s.record(ctx, "debt.create", "debt", id, nil, resp, err)
	return resp, err
}

func (s *auditedDebts) Settle(ctx context.Context, actorID, id uuid.UUID, req dto.SettleDebtRequest) (*dto.SettleDebtResponse, error) {
	before, _ := s.DebtService.Get(ctx, id)
	resp, err := s.DebtService.Settle(ctx, actorID, id, req)
	s.record(ctx, "debt.settle", "debt", id.String(), before, resp, err)
	return resp, err
}

func (s *auditedDebts) Cancel(ctx context.Context, id uuid.UUID, req dto.CancelDebtRequest) (*dto.DebtResponse, error) {
	before, _ := s.DebtService.Get(ctx, id)
	resp, err := s.DebtService.Cancel(ctx, id, req)
	s.record(ctx, "debt.cancel", "debt", id.String(), before, resp, err)
	return resp, err
}

// ── Shifts ────────────────────────────────────────────────────────────────────

type auditedShifts struct {
	ShiftService
	auditor
}

func WithShiftAudit(inner ShiftService, sink AuditSink) ShiftService {
	return &auditedShifts{ShiftService: inner, auditor: auditor{sink: sink, now: time.Now}}
}

func (s *auditedShifts) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error) {
	resp, err := s.ShiftService.Open(ctx, operatorID, req)
	id := ""
	if resp != nil {
		id = resp.ID
	}
	s.record(ctx, "shift.open", "shift", id, nil, resp, err)
	return resp, err
}

func (s *auditedShifts) RecordAdjustment(ctx context.Context, actorID, shiftID uuid.UUID, req dto.AdjustmentRequest) (*dto.AdjustmentResponse, error) {
	resp, err := s.ShiftService.RecordAdjustment(ctx, actorID, shiftID, req)
	s.record(ctx, "shift."+req.Kind, "shift", shiftID.String(), nil, resp, err)
	return resp, err
}

func (s *auditedShifts) Close(ctx context.Context, actorID, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftSummary, error) {
	before, _ := s.ShiftService.Totals(ctx, shiftID)
	resp, err := s.ShiftService.Close(ctx, actorID, shiftID, req)
	s.record(ctx, "shift.close", "shift", shiftID.String(), before, resp, err)
	return resp, err
}

func (s *auditedShifts) Cancel(ctx context.Context, actorID, shiftID uuid.UUID, req dto.CancelShiftRequest) (*dto.ShiftResponse, error) {
	before, _ := s.ShiftService.Totals(ctx, shiftID)
	resp, err := s.ShiftService.Cancel(ctx, actorID, shiftID, req)
	s.record(ctx, "shift.cancel", "shift", shiftID.String(), before, resp, err)
	return resp, err
}
