package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/metrics"
	"parkcore/internal/model"
	"parkcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentInput is one payment to record. Status defaults to completed.
type PaymentInput struct {
	SaleID            *uuid.UUID
	SessionID         *uuid.UUID
	ShiftID           *uuid.UUID
	Method            string
	Amount            decimal.Decimal
	Status            string
	ExternalRef       *string
	AuthorizationCode *string
	PayloadHash       *string
	ActorID           uuid.UUID
	// FinalPayment opens a debt for any shortfall left after this payment.
	FinalPayment bool
}

// PaymentOutcome is the reconciled state after a payment was stored.
type PaymentOutcome struct {
	Payment model.Payment
	Sale    *model.Sale
	Paid    decimal.Decimal
	Closed  bool

	// Debt is the session's shortfall debt as left by this payment: opened,
	// resized or settled.
	Debt       *model.Debt
	DebtOpened bool
}

type PaymentService interface {
	Record(ctx context.Context, actorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error)
	// RecordDeclined stores a failed terminal result; it never enters reconciliation.
	RecordDeclined(ctx context.Context, actorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error)
	// ConfirmExternal records a gateway confirmation at most once per key.
	// replayed reports whether the result came from an earlier call.
	ConfirmExternal(ctx context.Context, actorID uuid.UUID, key string, req dto.ConfirmExternalRequest) (resp *dto.PaymentResponse, replayed bool, err error)
	SaleStatus(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]dto.PaymentResponse, error)
	// RecordTx stores a payment and reconciles its sale inside tx.
	RecordTx(ctx context.Context, tx *gorm.DB, in PaymentInput) (*PaymentOutcome, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	sales     repository.SaleRepository
	sessions  repository.SessionRepository
	shifts    repository.ShiftRepository
	closer    SessionCloser
	shortfall ShortfallOpener
	guard     *IdempotencyGuard
	now       func() time.Time
}

func NewPaymentService(
	repo repository.PaymentRepository,
	sales repository.SaleRepository,
	sessions repository.SessionRepository,
	shifts repository.ShiftRepository,
	shortfall ShortfallOpener,
	guard *IdempotencyGuard,
) PaymentService {
	return &paymentService{
		repo:      repo,
		sales:     sales,
		sessions:  sessions,
		shifts:    shifts,
		closer:    NewSessionCloser(sessions, sales),
		shortfall: shortfall,
		guard:     guard,
		now:       time.Now,
	}
}

func (s *paymentService) inputFromRequest(actorID uuid.UUID, req dto.RecordPaymentRequest) (PaymentInput, error) {
	in := PaymentInput{
		Method:            req.Method,
		Amount:            req.Amount,
		ExternalRef:       req.ExternalRef,
		AuthorizationCode: req.AuthorizationCode,
		ActorID:           actorID,
		FinalPayment:      req.FinalPayment,
	}
	var err error
	if in.SaleID, err = parseOptionalID("sale_id", req.SaleID); err != nil {
		return in, err
	}
	if in.SessionID, err = parseOptionalID("session_id", req.SessionID); err != nil {
		return in, err
	}
	if in.ShiftID, err = parseOptionalID("shift_id", req.ShiftID); err != nil {
		return in, err
	}
	return in, nil
}

// ── Record ────────────────────────────────────────────────────────────────────

func (s *paymentService) Record(ctx context.Context, actorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	in, err := s.inputFromRequest(actorID, req)
	if err != nil {
		return nil, err
	}
	var out *PaymentOutcome
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		var err error
		out, err = s.RecordTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(out)
	resp := outcomeResponse(out)
	return &resp, nil
}

func (s *paymentService) RecordDeclined(ctx context.Context, actorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	in, err := s.inputFromRequest(actorID, req)
	if err != nil {
		return nil, err
	}
	in.Status = model.PaymentFailed
	in.FinalPayment = false
	var out *PaymentOutcome
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		var err error
		out, err = s.RecordTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(out)
	resp := outcomeResponse(out)
	return &resp, nil
}

// RecordTx validates and stores one payment, then recomputes closure of its
// sale from the completed payment rows visible in the same transaction. The
// sale row is locked first so concurrent payments on one sale serialize.
func (s *paymentService) RecordTx(ctx context.Context, tx *gorm.DB, in PaymentInput) (*PaymentOutcome, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if !model.ValidMethod(in.Method) {
		return nil, apperr.ErrInvalidMethod.WithDetail("unknown payment method %q", in.Method)
	}
	if in.Status == "" {
		in.Status = model.PaymentCompleted
	}
	if in.SaleID == nil && in.SessionID == nil {
		return nil, apperr.ErrInvalidInput.WithDetail("a payment needs a sale_id or a session_id")
	}

	if in.ShiftID == nil && in.Method == model.MethodCash {
		return nil, apperr.ErrShiftRequired
	}
	if in.ShiftID != nil {
		shift, err := s.shifts.FindByIDForUpdate(ctx, tx, *in.ShiftID)
		if err != nil {
			return nil, err
		}
		if shift.Status != model.ShiftOpen {
			return nil, apperr.ErrShiftNotOpen.WithDetail("shift %s is %s", shift.ID, shift.Status)
		}
	}

	sale, err := s.resolveSale(ctx, tx, &in)
	if err != nil {
		return nil, err
	}

	p := model.Payment{
		SaleID:            in.SaleID,
		SessionID:         in.SessionID,
		ShiftID:           in.ShiftID,
		Method:            in.Method,
		Amount:            in.Amount,
		Status:            in.Status,
		PaidAt:            s.now(),
		ExternalRef:       in.ExternalRef,
		AuthorizationCode: in.AuthorizationCode,
		PayloadHash:       in.PayloadHash,
	}
	if in.ActorID != uuid.Nil {
		actor := in.ActorID
		p.CreatedBy = &actor
	}
	if err := s.repo.Create(ctx, tx, &p); err != nil {
		return nil, err
	}

	out := &PaymentOutcome{Payment: p, Sale: sale}
	if sale == nil || p.Status != model.PaymentCompleted {
		return out, nil
	}
	return out, s.reconcile(ctx, tx, out, in.FinalPayment)
}

// resolveSale locks the sale the payment belongs to. A payment naming only a
// session is attached to that session's sale when one exists, otherwise it
// stays a direct session payment.
func (s *paymentService) resolveSale(ctx context.Context, tx *gorm.DB, in *PaymentInput) (*model.Sale, error) {
	if in.SaleID == nil {
		if _, err := s.sessions.FindByID(ctx, *in.SessionID); err != nil {
			return nil, err
		}
		sale, err := s.sales.FindBySession(ctx, tx, *in.SessionID)
		if err != nil || sale == nil {
			return nil, err
		}
		in.SaleID = &sale.ID
	}

	sale, err := s.sales.FindByIDForUpdate(ctx, tx, *in.SaleID)
	if err != nil {
		return nil, err
	}
	if in.SessionID == nil {
		in.SessionID = sale.SessionID
	} else if sale.SessionID != nil && *sale.SessionID != *in.SessionID {
		return nil, apperr.ErrInvalidInput.WithDetail("sale %s does not belong to session %s", sale.ID, *in.SessionID)
	}
	return sale, nil
}

// reconcile recomputes closure of the sale and brings a pending shortfall
// debt of its session in line with total − paid.
func (s *paymentService) reconcile(ctx context.Context, tx *gorm.DB, out *PaymentOutcome, final bool) error {
	paid, err := s.repo.SumCompletedBySale(ctx, tx, out.Sale.ID)
	if err != nil {
		return err
	}
	out.Paid = paid
	out.Closed = paid.GreaterThanOrEqual(out.Sale.Total)

	if out.Sale.SessionID != nil && s.shortfall != nil {
		out.Debt, err = s.shortfall.SyncShortfallTx(ctx, tx, *out.Sale.SessionID, out.Sale.Total.Sub(paid), out.Payment.ID)
		if err != nil {
			return err
		}
	}

	if out.Closed {
		if out.Sale.IssuedAt == nil {
			issued := s.now()
			if err := s.sales.MarkIssued(ctx, tx, out.Sale.ID, issued); err != nil {
				return err
			}
			out.Sale.IssuedAt = &issued
		}
		if out.Sale.SessionID == nil {
			return nil
		}
		sess, err := s.sessions.FindByIDForUpdate(ctx, tx, *out.Sale.SessionID)
		if err != nil {
			return err
		}
		return s.closer.CloseTx(ctx, tx, sess)
	}

	if !final || out.Debt != nil || out.Sale.SessionID == nil || s.shortfall == nil {
		return nil
	}
	sess, err := s.sessions.FindByIDForUpdate(ctx, tx, *out.Sale.SessionID)
	if err != nil {
		return err
	}
	out.Debt, err = s.shortfall.OpenFromShortfallTx(ctx, tx, sess, out.Sale.ID, paid)
	out.DebtOpened = out.Debt != nil
	return err
}

func (s *paymentService) observe(out *PaymentOutcome) {
	p := out.Payment
	metrics.PaymentsRecorded.WithLabelValues(p.Method, p.Status).Inc()
	if p.Status == model.PaymentCompleted {
		f, _ := p.Amount.Float64()
		metrics.PaymentAmount.WithLabelValues(p.Method).Add(f)
	}
	switch {
	case out.DebtOpened:
		metrics.DebtsOpened.WithLabelValues(out.Debt.Origin).Inc()
	case out.Debt != nil && out.Debt.Status == model.DebtSettled:
		metrics.DebtsSettled.Inc()
	}
	ev := log.Info().Str("payment_id", p.ID.String()).Str("method", p.Method).Str("amount", p.Amount.String()).Str("status", p.Status)
	if out.Sale != nil {
		ev = ev.Str("sale_id", out.Sale.ID.String()).Bool("sale_closed", out.Closed)
	}
	ev.Msg("payment recorded")
}

func outcomeResponse(out *PaymentOutcome) dto.PaymentResponse {
	resp := toPaymentResponse(&out.Payment)
	resp.SaleClosed = out.Closed
	resp.SalePaid = out.Paid
	if out.Debt != nil {
		id := out.Debt.ID.String()
		resp.DebtID = &id
	}
	return resp
}

// ── ConfirmExternal ───────────────────────────────────────────────────────────

const endpointConfirmExternal = "payments.confirm_external"

func (s *paymentService) ConfirmExternal(ctx context.Context, actorID uuid.UUID, key string, req dto.ConfirmExternalRequest) (*dto.PaymentResponse, bool, error) {
	if key == "" {
		return nil, false, apperr.ErrInvalidInput.WithDetail("Idempotency-Key is required")
	}
	hash, err := payloadHash(req)
	if err != nil {
		return nil, false, err
	}
	in := PaymentInput{
		Method:            model.MethodGateway,
		Amount:            req.Amount,
		ExternalRef:       &req.TransactionID,
		AuthorizationCode: req.AuthorizationCode,
		PayloadHash:       &hash,
		ActorID:           actorID,
		FinalPayment:      req.FinalPayment,
	}
	if in.SaleID, err = parseOptionalID("sale_id", req.SaleID); err != nil {
		return nil, false, err
	}
	if in.SessionID, err = parseOptionalID("session_id", req.SessionID); err != nil {
		return nil, false, err
	}

	var out *PaymentOutcome
	resp, replayed, err := Execute(ctx, s.guard, key, endpointConfirmExternal, hash, func(tx *gorm.DB) (dto.PaymentResponse, error) {
		var err error
		out, err = s.RecordTx(ctx, tx, in)
		if err != nil {
			return dto.PaymentResponse{}, err
		}
		return outcomeResponse(out), nil
	})
	if err != nil {
		return nil, false, err
	}
	if replayed {
		metrics.IdempotentReplays.Inc()
		log.Info().Str("key", key).Msg("external confirmation replayed")
	} else {
		s.observe(out)
	}
	return &resp, replayed, nil
}

// payloadHash fingerprints a request for idempotency conflict detection.
func payloadHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *paymentService) SaleStatus(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.SumCompletedBySale(ctx, nil, saleID)
	if err != nil {
		return nil, err
	}
	return toSaleResponse(sale, paid), nil
}

func (s *paymentService) ListBySale(ctx context.Context, saleID uuid.UUID) ([]dto.PaymentResponse, error) {
	if _, err := s.sales.FindByID(ctx, saleID); err != nil {
		return nil, err
	}
	ps, err := s.repo.ListBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.PaymentResponse, len(ps))
	for i := range ps {
		resp[i] = toPaymentResponse(&ps[i])
	}
	return resp, nil
}
