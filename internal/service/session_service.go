package service

import (
	"context"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
	"parkcore/internal/metrics"
	"parkcore/internal/model"
	"parkcore/internal/repository"
	"parkcore/internal/tariff"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SessionService interface {
	Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	Checkout(ctx context.Context, operatorID, id uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	Close(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req dto.CancelSessionRequest) (*dto.SessionResponse, error)
	ListByPlate(ctx context.Context, plate string) ([]dto.SessionResponse, error)
	// ListPayments includes payments made against the session before it had a sale.
	ListPayments(ctx context.Context, id uuid.UUID) ([]dto.PaymentResponse, error)
}

// SaleSettings configures the sales created at checkout.
type SaleSettings struct {
	DocType string
	TaxRate decimal.Decimal
}

type sessionService struct {
	repo      repository.SessionRepository
	sales     repository.SaleRepository
	operators repository.OperatorRepository
	sectors   repository.SectorRepository
	pricing   repository.PricingRepository
	payments  repository.PaymentRepository
	quota     QuotaChecker
	closer    SessionCloser
	saleCfg   SaleSettings
	now       func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	sales repository.SaleRepository,
	operators repository.OperatorRepository,
	sectors repository.SectorRepository,
	pricing repository.PricingRepository,
	payments repository.PaymentRepository,
	quota QuotaChecker,
	saleCfg SaleSettings,
) SessionService {
	if saleCfg.DocType == "" {
		saleCfg.DocType = "boleta"
	}
	return &sessionService{
		repo:      repo,
		sales:     sales,
		operators: operators,
		sectors:   sectors,
		pricing:   pricing,
		payments:  payments,
		quota:     quota,
		closer:    NewSessionCloser(repo, sales),
		saleCfg:   saleCfg,
		now:       time.Now,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────
// The single-ACTIVE-session rule is left to the storage layer: two concurrent
// check-ins for the same plate race on the unique index, never on a query.

func (s *sessionService) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	sectorID, err := parseID("sector_id", req.SectorID)
	if err != nil {
		return nil, err
	}
	streetID, err := parseOptionalID("street_id", req.StreetID)
	if err != nil {
		return nil, err
	}
	plate := normalizePlate(req.Plate)
	if plate == "" {
		return nil, apperr.ErrInvalidInput.WithDetail("plate is required")
	}

	if _, err := s.sectors.FindByID(ctx, sectorID); err != nil {
		return nil, err
	}
	if streetID != nil {
		street, err := s.sectors.FindStreet(ctx, *streetID)
		if err != nil {
			return nil, err
		}
		if street.SectorID != sectorID {
			return nil, apperr.ErrInvalidInput.WithDetail("street %s does not belong to sector %s", street.ID, sectorID)
		}
	}

	now := s.now()
	if err := s.ensureAssigned(ctx, operatorID, sectorID, streetID, now); err != nil {
		return nil, err
	}
	if err := checkQuota(ctx, s.quota, infra.ResourceSession); err != nil {
		return nil, err
	}

	sess := &model.ParkingSession{
		Plate:        plate,
		SectorID:     sectorID,
		StreetID:     streetID,
		OperatorInID: operatorID,
		StartedAt:    now,
		Status:       model.SessionActive,
	}
	if err := s.repo.Create(ctx, nil, sess); err != nil {
		return nil, err
	}

	metrics.SessionsOpened.Inc()
	log.Info().Str("session_id", sess.ID.String()).Str("plate", plate).Msg("session opened")
	resp := toSessionResponse(sess)
	return &resp, nil
}

// ensureAssigned verifies the operator is active and holds an assignment
// covering the sector/street at t.
func (s *sessionService) ensureAssigned(ctx context.Context, operatorID, sectorID uuid.UUID, streetID *uuid.UUID, t time.Time) error {
	op, err := s.operators.FindByID(ctx, operatorID)
	if err != nil {
		return err
	}
	if !op.Active {
		return apperr.ErrOperatorInactive
	}
	assignments, err := s.operators.ListAssignments(ctx, operatorID, t)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.Covers(sectorID, streetID, t) {
			return nil
		}
	}
	return apperr.ErrOperatorNotAssigned
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSessionResponse(sess)
	sale, err := s.sales.FindBySession(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if sale != nil {
		paid, err := s.payments.SumCompletedBySale(ctx, nil, sale.ID)
		if err != nil {
			return nil, err
		}
		resp.Sale = toSaleResponse(sale, paid)
	}
	return &resp, nil
}

// ── Checkout ──────────────────────────────────────────────────────────────────
// One transaction: lock the session, price the stay, store the amounts,
// create the unissued sale and move to TO_PAY. A zero net amount has nothing
// left to pay, so the session goes straight to CLOSED.

func (s *sessionService) Checkout(ctx context.Context, operatorID, id uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	endedAt, err := parseTime("ended_at", req.EndedAt, s.now())
	if err != nil {
		return nil, err
	}
	discountID, err := parseOptionalID("discount_rule_id", req.DiscountRuleID)
	if err != nil {
		return nil, err
	}

	var (
		sess      *model.ParkingSession
		sale      *model.Sale
		breakdown tariff.Breakdown
		discount  decimal.Decimal
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		sess, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionActive {
			return apperr.ErrSessionNotActive.WithDetail("session %s is %s", sess.ID, sess.Status)
		}
		if endedAt.Before(sess.StartedAt) {
			return apperr.ErrInvalidInput.WithDetail("ended_at precedes started_at")
		}

		profile, err := s.pricing.FindActiveProfile(ctx, sess.SectorID, endedAt)
		if err != nil {
			return err
		}
		elapsed := endedAt.Sub(sess.StartedAt)
		breakdown, err = tariff.Quote(profile, endedAt, tariff.BillableMinutes(elapsed))
		if err != nil {
			return err
		}
		if discountID != nil {
			rule := findDiscount(profile, *discountID)
			if rule == nil {
				return apperr.NotFound("discount rule", *discountID)
			}
			discount = tariff.Discount(breakdown.Amount, rule, breakdown.Minutes)
		}

		ruleID := breakdown.RuleID
		sess.EndedAt = &endedAt
		sess.ElapsedSeconds = int64(elapsed / time.Second)
		sess.GrossAmount = breakdown.Amount
		sess.DiscountAmount = discount
		sess.NetAmount = breakdown.Amount.Sub(discount)
		sess.PricingRuleID = &ruleID
		sess.OperatorOutID = &operatorID
		sess.Status = model.SessionToPay

		sale = s.newSale(sess)
		if sess.NetAmount.IsZero() {
			issued := s.now()
			sale.IssuedAt = &issued
		}
		if err := s.sales.Create(ctx, tx, sale); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, sess); err != nil {
			return err
		}
		if sess.NetAmount.IsZero() {
			// nothing to collect: walk on through PAID to CLOSED
			return s.closer.CloseTx(ctx, tx, sess)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	outcome := "priced"
	switch {
	case sess.NetAmount.IsZero():
		outcome = "free"
	case breakdown.Fallback:
		outcome = "fallback"
		log.Warn().Str("session_id", sess.ID.String()).Int("minutes", breakdown.Minutes).Msg("no pricing rule range matched; fallback rule used")
	}
	metrics.SessionCheckouts.WithLabelValues(outcome).Inc()
	log.Info().Str("session_id", sess.ID.String()).Str("net", sess.NetAmount.String()).Str("status", sess.Status).Msg("session checked out")

	resp := toSessionResponse(sess)
	resp.Sale = toSaleResponse(sale, decimal.Zero)
	return &dto.CheckoutResponse{Session: resp, Breakdown: toQuoteResponse(breakdown, discount)}, nil
}

// newSale builds the sale for a priced session. The total includes tax:
// net = total / (1 + rate), tax = total − net.
func (s *sessionService) newSale(sess *model.ParkingSession) *model.Sale {
	total := sess.NetAmount
	net := total
	if s.saleCfg.TaxRate.IsPositive() {
		net = total.Div(decimal.NewFromInt(1).Add(s.saleCfg.TaxRate)).Round(2)
	}
	sessionID := sess.ID
	return &model.Sale{
		SessionID: &sessionID,
		DocType:   s.saleCfg.DocType,
		NetAmount: net,
		TaxAmount: total.Sub(net),
		Total:     total,
	}
}

func findDiscount(p *model.PricingProfile, id uuid.UUID) *model.DiscountRule {
	for i := range p.Discounts {
		if p.Discounts[i].ID == id {
			return &p.Discounts[i]
		}
	}
	return nil
}

// ── Status transitions ────────────────────────────────────────────────────────

func (s *sessionService) MarkPaid(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	return s.transition(ctx, id, model.SessionPaid)
}

func (s *sessionService) Close(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	var sess *model.ParkingSession
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		sess, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !sess.CanTransition(model.SessionClosed) {
			return apperr.ErrInvalidTransition.WithDetail("%s → %s", sess.Status, model.SessionClosed)
		}
		return s.closer.CloseTx(ctx, tx, sess)
	})
	if err != nil {
		return nil, err
	}
	resp := toSessionResponse(sess)
	return &resp, nil
}

func (s *sessionService) Cancel(ctx context.Context, id uuid.UUID, req dto.CancelSessionRequest) (*dto.SessionResponse, error) {
	resp, err := s.transition(ctx, id, model.SessionCanceled)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", id.String()).Str("reason", req.Reason).Msg("session canceled")
	return resp, nil
}

func (s *sessionService) transition(ctx context.Context, id uuid.UUID, to string) (*dto.SessionResponse, error) {
	var sess *model.ParkingSession
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		sess, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if sess.Status == model.SessionClosed && to == model.SessionCanceled {
			return apperr.ErrSessionAlreadyClosed
		}
		if !sess.CanTransition(to) {
			return apperr.ErrInvalidTransition.WithDetail("%s → %s", sess.Status, to)
		}
		sess.Status = to
		return s.repo.Update(ctx, tx, sess)
	})
	if err != nil {
		return nil, err
	}
	resp := toSessionResponse(sess)
	return &resp, nil
}

func (s *sessionService) ListByPlate(ctx context.Context, plate string) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.ListByPlate(ctx, normalizePlate(plate))
	if err != nil {
		return nil, err
	}
	resp := make([]dto.SessionResponse, len(sessions))
	for i := range sessions {
		resp[i] = toSessionResponse(&sessions[i])
	}
	return resp, nil
}

func (s *sessionService) ListPayments(ctx context.Context, id uuid.UUID) ([]dto.PaymentResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	ps, err := s.payments.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.PaymentResponse, len(ps))
	for i := range ps {
		resp[i] = toPaymentResponse(&ps[i])
	}
	return resp, nil
}

// ── SessionCloser ─────────────────────────────────────────────────────────────

// SessionCloser finishes a fully paid session inside the caller's transaction.
type SessionCloser interface {
	// CloseTx walks sess through PAID to CLOSED and stamps its sale's issued_at.
	// sess must already be locked by the caller.
	CloseTx(ctx context.Context, tx *gorm.DB, sess *model.ParkingSession) error
}

type sessionCloser struct {
	repo  repository.SessionRepository
	sales repository.SaleRepository
	now   func() time.Time
}

func NewSessionCloser(repo repository.SessionRepository, sales repository.SaleRepository) SessionCloser {
	return &sessionCloser{repo: repo, sales: sales, now: time.Now}
}

func (c *sessionCloser) CloseTx(ctx context.Context, tx *gorm.DB, sess *model.ParkingSession) error {
	if sess.Status == model.SessionClosed {
		return nil
	}
	if sess.Status == model.SessionToPay {
		sess.Status = model.SessionPaid
		if err := c.repo.Update(ctx, tx, sess); err != nil {
			return err
		}
	}
	if !sess.CanTransition(model.SessionClosed) {
		return apperr.ErrInvalidTransition.WithDetail("%s → %s", sess.Status, model.SessionClosed)
	}
	sess.Status = model.SessionClosed
	if err := c.repo.Update(ctx, tx, sess); err != nil {
		return err
	}

	sale, err := c.sales.FindBySession(ctx, tx, sess.ID)
	if err != nil {
		return err
	}
	if sale != nil && sale.IssuedAt == nil {
		return c.sales.MarkIssued(ctx, tx, sale.ID, c.now())
	}
	return nil
}
