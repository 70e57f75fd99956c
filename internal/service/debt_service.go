package service

import (
	"context"
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

// ShortfallOpener turns the unpaid part of a checkout into a debt and keeps
// that debt equal to what the sale still lacks.
type ShortfallOpener interface {
	// OpenFromShortfallTx creates a pending session_shortfall debt for
	// net_amount − paid. It returns nil, nil when the session is fully paid or
	// already has a pending shortfall debt.
	OpenFromShortfallTx(ctx context.Context, tx *gorm.DB, sess *model.ParkingSession, saleID uuid.UUID, paid decimal.Decimal) (*model.Debt, error)
	// SyncShortfallTx applies a completed payment to the session's pending
	// shortfall debt: settled by paymentID when outstanding is zero or less,
	// otherwise resized to outstanding. It returns nil, nil without a pending debt.
	SyncShortfallTx(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, outstanding decimal.Decimal, paymentID uuid.UUID) (*model.Debt, error)
}

type shortfallOpener struct {
	debts repository.DebtRepository
	now   func() time.Time
}

func NewShortfallOpener(debts repository.DebtRepository) ShortfallOpener {
	return &shortfallOpener{debts: debts, now: time.Now}
}

func (o *shortfallOpener) OpenFromShortfallTx(ctx context.Context, tx *gorm.DB, sess *model.ParkingSession, saleID uuid.UUID, paid decimal.Decimal) (*model.Debt, error) {
	if paid.GreaterThanOrEqual(sess.NetAmount) {
		return nil, nil
	}
	amount := sess.NetAmount.Sub(paid)
	sessionID := sess.ID
	d := &model.Debt{
		Plate:           sess.Plate,
		SessionID:       &sessionID,
		SaleID:          &saleID,
		Origin:          model.OriginShortfall,
		OriginalAmount:  amount,
		PrincipalAmount: amount,
		Status:          model.DebtPending,
		CreatedAt:       o.now(),
	}
	created, err := o.debts.CreateShortfall(ctx, tx, d)
	if err != nil || !created {
		return nil, err
	}
	log.Info().Str("debt_id", d.ID.String()).Str("plate", d.Plate).Str("amount", amount.String()).Msg("shortfall debt opened")
	return d, nil
}

func (o *shortfallOpener) SyncShortfallTx(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, outstanding decimal.Decimal, paymentID uuid.UUID) (*model.Debt, error) {
	d, err := o.debts.FindPendingShortfallForUpdate(ctx, tx, sessionID)
	if err != nil || d == nil {
		return nil, err
	}
	if outstanding.IsPositive() {
		if d.PrincipalAmount.Equal(outstanding) {
			return d, nil
		}
		log.Info().Str("debt_id", d.ID.String()).Str("from", d.PrincipalAmount.String()).Str("to", outstanding.String()).Msg("shortfall debt resized")
		d.PrincipalAmount = outstanding
		return d, o.debts.Update(ctx, tx, d)
	}

	settled := o.now()
	pid := paymentID
	d.PrincipalAmount = decimal.Zero
	d.Status = model.DebtSettled
	d.SettledAt = &settled
	d.SettledPaymentID = &pid
	if err := o.debts.Update(ctx, tx, d); err != nil {
		return nil, err
	}
	log.Info().Str("debt_id", d.ID.String()).Str("payment_id", pid.String()).Msg("shortfall debt settled by sale payment")
	return d, nil
}

type DebtService interface {
	OpenFromShortfall(ctx context.Context, sessionID uuid.UUID, paid decimal.Decimal) (*dto.DebtResponse, error)
	CreateManual(ctx context.Context, req dto.CreateDebtRequest) (*dto.DebtResponse, error)
	Settle(ctx context.Context, actorID, id uuid.UUID, req dto.SettleDebtRequest) (*dto.SettleDebtResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req dto.CancelDebtRequest) (*dto.DebtResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.DebtResponse, error)
	ListByPlate(ctx context.Context, plate, status string) ([]dto.DebtResponse, error)
}

type debtService struct {
	repo      repository.DebtRepository
	sessions  repository.SessionRepository
	sales     repository.SaleRepository
	ledger    PaymentService
	shortfall ShortfallOpener
	saleCfg   SaleSettings
	now       func() time.Time
}

func NewDebtService(
	repo repository.DebtRepository,
	sessions repository.SessionRepository,
	sales repository.SaleRepository,
	ledger PaymentService,
	shortfall ShortfallOpener,
	saleCfg SaleSettings,
) DebtService {
	if saleCfg.DocType == "" {
		saleCfg.DocType = "boleta"
	}
	return &debtService{
		repo:      repo,
		sessions:  sessions,
		sales:     sales,
		ledger:    ledger,
		shortfall: shortfall,
		saleCfg:   saleCfg,
		now:       time.Now,
	}
}

// OpenFromShortfall is the standalone form of the checkout shortfall path.
func (s *debtService) OpenFromShortfall(ctx context.Context, sessionID uuid.UUID, paid decimal.Decimal) (*dto.DebtResponse, error) {
	var debt *model.Debt
	err := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		sess, err := s.sessions.FindByIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		sale, err := s.sales.FindBySession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sale == nil {
			return apperr.ErrInvalidTransition.WithDetail("session %s has not been checked out", sessionID)
		}
		debt, err = s.shortfall.OpenFromShortfallTx(ctx, tx, sess, sale.ID, paid)
		return err
	})
	if err != nil || debt == nil {
		return nil, err
	}
	metrics.DebtsOpened.WithLabelValues(debt.Origin).Inc()
	resp := toDebtResponse(debt)
	return &resp, nil
}

func (s *debtService) CreateManual(ctx context.Context, req dto.CreateDebtRequest) (*dto.DebtResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if req.Origin != model.OriginFine && req.Origin != model.OriginManual {
		return nil, apperr.ErrInvalidInput.WithDetail("origin must be fine or manual")
	}
	plate := normalizePlate(req.Plate)
	if plate == "" {
		return nil, apperr.ErrInvalidInput.WithDetail("plate is required")
	}
	d := &model.Debt{
		Plate:           plate,
		Origin:          req.Origin,
		OriginalAmount:  req.Amount,
		PrincipalAmount: req.Amount,
		Status:          model.DebtPending,
		Notes:           req.Notes,
		CreatedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, nil, d); err != nil {
		return nil, err
	}
	metrics.DebtsOpened.WithLabelValues(d.Origin).Inc()
	log.Info().Str("debt_id", d.ID.String()).Str("plate", plate).Str("origin", d.Origin).Msg("manual debt created")
	resp := toDebtResponse(d)
	return &resp, nil
}

// ── Settle ────────────────────────────────────────────────────────────────────
// Sale creation (when needed), the payment and the debt update commit together.

func (s *debtService) Settle(ctx context.Context, actorID, id uuid.UUID, req dto.SettleDebtRequest) (*dto.SettleDebtResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	shiftID, err := parseOptionalID("shift_id", req.ShiftID)
	if err != nil {
		return nil, err
	}

	var (
		debt *model.Debt
		out  *PaymentOutcome
	)
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		var err error
		debt, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if debt.Status != model.DebtPending {
			return apperr.ErrDebtNotPending.WithDetail("debt %s is %s", debt.ID, debt.Status)
		}
		if req.Amount.LessThan(debt.PrincipalAmount) {
			return apperr.ErrInsufficientAmount.WithDetail("amount %s is below pending %s", req.Amount, debt.PrincipalAmount)
		}

		saleID, err := s.ensureSale(ctx, tx, debt, req.Amount)
		if err != nil {
			return err
		}

		out, err = s.ledger.RecordTx(ctx, tx, PaymentInput{
			SaleID:            &saleID,
			SessionID:         debt.SessionID,
			ShiftID:           shiftID,
			Method:            req.Method,
			Amount:            req.Amount,
			AuthorizationCode: req.ApprovalCode,
			ActorID:           actorID,
		})
		if err != nil {
			return err
		}

		// A shortfall debt is already settled by the ledger when the payment
		// closed its sale; manual debts are settled here.
		if synced := out.Debt; synced != nil && synced.ID == debt.ID {
			if synced.Status != model.DebtSettled {
				return apperr.ErrInsufficientAmount.WithDetail("sale still lacks %s", synced.PrincipalAmount)
			}
			debt = synced
			debt.SaleID = &saleID
			return s.repo.Update(ctx, tx, debt)
		}
		settled := s.now()
		pid := out.Payment.ID
		debt.SaleID = &saleID
		debt.PrincipalAmount = decimal.Zero
		debt.Status = model.DebtSettled
		debt.SettledAt = &settled
		debt.SettledPaymentID = &pid
		return s.repo.Update(ctx, tx, debt)
	})
	if err != nil {
		return nil, err
	}

	metrics.DebtsSettled.Inc()
	log.Info().Str("debt_id", debt.ID.String()).Str("payment_id", out.Payment.ID.String()).Msg("debt settled")
	return &dto.SettleDebtResponse{Debt: toDebtResponse(debt), Payment: outcomeResponse(out)}, nil
}

// ensureSale returns the sale the settling payment goes to: the debt's own,
// else its session's, else a new one for the settled amount.
func (s *debtService) ensureSale(ctx context.Context, tx *gorm.DB, debt *model.Debt, amount decimal.Decimal) (uuid.UUID, error) {
	if debt.SaleID != nil {
		return *debt.SaleID, nil
	}
	if debt.SessionID != nil {
		sale, err := s.sales.FindBySession(ctx, tx, *debt.SessionID)
		if err != nil {
			return uuid.Nil, err
		}
		if sale != nil {
			return sale.ID, nil
		}
	}

	net := amount
	if s.saleCfg.TaxRate.IsPositive() {
		net = amount.Div(decimal.NewFromInt(1).Add(s.saleCfg.TaxRate)).Round(2)
	}
	sale := &model.Sale{
		SessionID: debt.SessionID,
		DocType:   s.saleCfg.DocType,
		NetAmount: net,
		TaxAmount: amount.Sub(net),
		Total:     amount,
	}
	if err := s.sales.Create(ctx, tx, sale); err != nil {
		return uuid.Nil, err
	}
	return sale.ID, nil
}

func (s *debtService) Cancel(ctx context.Context, id uuid.UUID, req dto.CancelDebtRequest) (*dto.DebtResponse, error) {
	var debt *model.Debt
	err := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		var err error
		debt, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if debt.Status != model.DebtPending {
			return apperr.ErrDebtNotPending.WithDetail("debt %s is %s", debt.ID, debt.Status)
		}
		at := s.now()
		reason := req.Reason
		debt.Status = model.DebtCancelled
		debt.CancelledAt = &at
		debt.CancelReason = &reason
		return s.repo.Update(ctx, tx, debt)
	})
	if err != nil {
		return nil, err
	}
	resp := toDebtResponse(debt)
	return &resp, nil
}

func (s *debtService) Get(ctx context.Context, id uuid.UUID) (*dto.DebtResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toDebtResponse(d)
	return &resp, nil
}

func (s *debtService) ListByPlate(ctx context.Context, plate, status string) ([]dto.DebtResponse, error) {
	ds, err := s.repo.ListByPlate(ctx, normalizePlate(plate), status)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.DebtResponse, len(ds))
	for i := range ds {
		resp[i] = toDebtResponse(&ds[i])
	}
	return resp, nil
}
