package service

import (
	"context"
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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ShiftReportEnqueuer hands a closed shift's summary to the reporting worker.
type ShiftReportEnqueuer interface {
	EnqueueShiftReport(ctx context.Context, summary dto.ShiftSummary) error
}

type ShiftService interface {
	Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error)
	RecordAdjustment(ctx context.Context, actorID, shiftID uuid.UUID, req dto.AdjustmentRequest) (*dto.AdjustmentResponse, error)
	ListAdjustments(ctx context.Context, shiftID uuid.UUID) ([]dto.AdjustmentResponse, error)
	// ListOperations returns the shift's operation log, oldest first.
	ListOperations(ctx context.Context, shiftID uuid.UUID) ([]dto.ShiftOperationResponse, error)
	Totals(ctx context.Context, shiftID uuid.UUID) (*dto.ShiftSummary, error)
	Close(ctx context.Context, actorID, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftSummary, error)
	Cancel(ctx context.Context, actorID, shiftID uuid.UUID, req dto.CancelShiftRequest) (*dto.ShiftResponse, error)
	GetActive(ctx context.Context, operatorID uuid.UUID, deviceID *string) (*dto.ShiftResponse, error)
	History(ctx context.Context, filter dto.ShiftHistoryFilter) (*dto.ShiftHistoryResponse, error)
}

type shiftService struct {
	repo     repository.ShiftRepository
	payments repository.PaymentRepository
	sales    repository.SaleRepository
	reports  ShiftReportEnqueuer
	now      func() time.Time
}

// NewShiftService builds the shift cash register. reports may be nil, in
// which case closed shifts are not mailed.
func NewShiftService(
	repo repository.ShiftRepository,
	payments repository.PaymentRepository,
	sales repository.SaleRepository,
	reports ShiftReportEnqueuer,
) ShiftService {
	return &shiftService{repo: repo, payments: payments, sales: sales, reports: reports, now: time.Now}
}

func (s *shiftService) db() *gorm.DB { return s.repo.DB() }

// ── Open ──────────────────────────────────────────────────────────────────────
// One OPEN shift per (operator, device) is enforced by a partial unique index;
// a concurrent second open fails on insert.

func (s *shiftService) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error) {
	if req.OpeningFloat.IsNegative() {
		return nil, apperr.ErrInvalidAmount.WithDetail("opening float cannot be negative")
	}
	sectorID, err := parseOptionalID("sector_id", req.SectorID)
	if err != nil {
		return nil, err
	}

	shift := &model.Shift{
		OperatorID:   operatorID,
		SectorID:     sectorID,
		DeviceID:     req.DeviceID,
		OpeningFloat: req.OpeningFloat,
		Status:       model.ShiftOpen,
		Notes:        req.Notes,
		OpenedAt:     s.now(),
	}
	err = runTx(ctx, s.db(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, shift); err != nil {
			return err
		}
		amount := shift.OpeningFloat
		return s.appendOperation(ctx, tx, shift.ID, model.OpOpen, &amount, operatorID, nil)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("shift_id", shift.ID.String()).Str("operator_id", operatorID.String()).Msg("shift opened")
	resp := toShiftResponse(shift)
	return &resp, nil
}

// ── Adjustments ───────────────────────────────────────────────────────────────
// Withdrawals and deposits are stored as positive amounts of their own kind;
// they are only netted when totals are computed.

func (s *shiftService) RecordAdjustment(ctx context.Context, actorID, shiftID uuid.UUID, req dto.AdjustmentRequest) (*dto.AdjustmentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if req.Kind != model.AdjustmentWithdrawal && req.Kind != model.AdjustmentDeposit {
		return nil, apperr.ErrInvalidInput.WithDetail("kind must be withdrawal or deposit")
	}
	approverID, err := parseOptionalID("approver_id", req.ApproverID)
	if err != nil {
		return nil, err
	}

	var adj *model.CashAdjustment
	err = runTx(ctx, s.db(), func(tx *gorm.DB) error {
		shift, err := s.repo.FindByIDForUpdate(ctx, tx, shiftID)
		if err != nil {
			return err
		}
		if shift.Status != model.ShiftOpen {
			return apperr.ErrShiftNotOpen.WithDetail("shift %s is %s", shift.ID, shift.Status)
		}
		adj = &model.CashAdjustment{
			ShiftID:    shiftID,
			Kind:       req.Kind,
			Amount:     req.Amount,
			Reason:     req.Reason,
			ActorID:    actorID,
			ApproverID: approverID,
			CreatedAt:  s.now(),
		}
		if err := s.repo.CreateAdjustment(ctx, tx, adj); err != nil {
			return err
		}
		amount := req.Amount
		return s.appendOperation(ctx, tx, shiftID, req.Kind, &amount, actorID, map[string]any{
			"adjustment_id": adj.ID,
			"reason":        req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("shift_id", shiftID.String()).Str("kind", adj.Kind).Str("amount", adj.Amount.String()).Msg("cash adjustment recorded")
	resp := toAdjustmentResponse(adj)
	return &resp, nil
}

func (s *shiftService) ListAdjustments(ctx context.Context, shiftID uuid.UUID) ([]dto.AdjustmentResponse, error) {
	if _, err := s.repo.FindByID(ctx, shiftID); err != nil {
		return nil, err
	}
	as, err := s.repo.ListAdjustments(ctx, nil, shiftID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.AdjustmentResponse, len(as))
	for i := range as {
		resp[i] = toAdjustmentResponse(&as[i])
	}
	return resp, nil
}

func (s *shiftService) ListOperations(ctx context.Context, shiftID uuid.UUID) ([]dto.ShiftOperationResponse, error) {
	if _, err := s.repo.FindByID(ctx, shiftID); err != nil {
		return nil, err
	}
	ops, err := s.repo.ListOperations(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ShiftOperationResponse, len(ops))
	for i := range ops {
		resp[i] = toShiftOperationResponse(&ops[i])
	}
	return resp, nil
}

// ── Totals ────────────────────────────────────────────────────────────────────

func (s *shiftService) Totals(ctx context.Context, shiftID uuid.UUID) (*dto.ShiftSummary, error) {
	var summary dto.ShiftSummary
	err := runTx(ctx, s.db(), func(tx *gorm.DB) error {
		shift, err := s.repo.FindByID(ctx, shiftID)
		if err != nil {
			return err
		}
		totals, err := s.totalsTx(ctx, tx, shift)
		if err != nil {
			return err
		}
		summary = toShiftSummary(shift, totals)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// totalsTx loads the shift's rows and the global payment sums of every sale
// they touch, all through tx.
func (s *shiftService) totalsTx(ctx context.Context, tx *gorm.DB, shift *model.Shift) (ShiftTotals, error) {
	payments, err := s.payments.ListByShift(ctx, tx, shift.ID)
	if err != nil {
		return ShiftTotals{}, err
	}
	adjustments, err := s.repo.ListAdjustments(ctx, tx, shift.ID)
	if err != nil {
		return ShiftTotals{}, err
	}

	seen := map[uuid.UUID]struct{}{}
	var saleIDs []uuid.UUID
	for _, p := range payments {
		if p.SaleID == nil || p.Status != model.PaymentCompleted {
			continue
		}
		if _, ok := seen[*p.SaleID]; !ok {
			seen[*p.SaleID] = struct{}{}
			saleIDs = append(saleIDs, *p.SaleID)
		}
	}

	sales := make(map[uuid.UUID]model.Sale, len(saleIDs))
	paid := map[uuid.UUID]decimal.Decimal{}
	if len(saleIDs) > 0 {
		rows, err := s.sales.FindByIDs(ctx, tx, saleIDs)
		if err != nil {
			return ShiftTotals{}, err
		}
		for _, sale := range rows {
			sales[sale.ID] = sale
		}
		if paid, err = s.payments.SumCompletedBySales(ctx, tx, saleIDs); err != nil {
			return ShiftTotals{}, err
		}
	}
	return ComputeTotals(shift, payments, adjustments, sales, paid), nil
}

// ── Close ─────────────────────────────────────────────────────────────────────
// The shift row stays locked while totals are computed, so no payment can be
// tagged to it between the computation and the status change.

func (s *shiftService) Close(ctx context.Context, actorID, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftSummary, error) {
	if req.DeclaredCash.IsNegative() {
		return nil, apperr.ErrInvalidAmount.WithDetail("declared cash cannot be negative")
	}

	var summary dto.ShiftSummary
	err := runTx(ctx, s.db(), func(tx *gorm.DB) error {
		shift, err := s.repo.FindByIDForUpdate(ctx, tx, shiftID)
		if err != nil {
			return err
		}
		if shift.Status != model.ShiftOpen {
			return apperr.ErrShiftNotOpen.WithDetail("shift %s is %s", shift.ID, shift.Status)
		}
		totals, err := s.totalsTx(ctx, tx, shift)
		if err != nil {
			return err
		}

		closedAt := s.now()
		expected := totals.CashExpected
		declared := req.DeclaredCash
		overShort := declared.Sub(expected)
		shift.CashExpected = &expected
		shift.ClosingDeclaredCash = &declared
		shift.CashOverShort = &overShort
		shift.ClosedAt = &closedAt
		shift.ClosedBy = &actorID
		shift.Status = model.ShiftClosed
		if req.Notes != nil {
			shift.Notes = req.Notes
		}
		if err := s.repo.Update(ctx, tx, shift); err != nil {
			return err
		}

		summary = toShiftSummary(shift, totals)
		return s.appendOperation(ctx, tx, shift.ID, model.OpClose, &declared, actorID, map[string]any{
			"cash_expected":   expected,
			"cash_declared":   declared,
			"cash_over_short": overShort,
			"classification":  summary.Variance.Classification,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftsClosed.WithLabelValues(summary.Variance.Classification).Inc()
	log.Info().
		Str("shift_id", summary.ShiftID).
		Str("expected", summary.CashExpected.String()).
		Str("over_short", summary.CashOverShort.String()).
		Str("classification", summary.Variance.Classification).
		Msg("shift closed")

	if s.reports != nil {
		if err := s.reports.EnqueueShiftReport(ctx, summary); err != nil {
			log.Warn().Err(err).Str("shift_id", summary.ShiftID).Msg("could not enqueue shift report")
		}
	}
	return &summary, nil
}

func (s *shiftService) Cancel(ctx context.Context, actorID, shiftID uuid.UUID, req dto.CancelShiftRequest) (*dto.ShiftResponse, error) {
	var shift *model.Shift
	err := runTx(ctx, s.db(), func(tx *gorm.DB) error {
		var err error
		shift, err = s.repo.FindByIDForUpdate(ctx, tx, shiftID)
		if err != nil {
			return err
		}
		if shift.Status != model.ShiftOpen {
			return apperr.ErrShiftNotOpen.WithDetail("shift %s is %s", shift.ID, shift.Status)
		}
		closedAt := s.now()
		shift.Status = model.ShiftCanceled
		shift.ClosedAt = &closedAt
		shift.ClosedBy = &actorID
		if req.Notes != nil {
			shift.Notes = req.Notes
		}
		if err := s.repo.Update(ctx, tx, shift); err != nil {
			return err
		}
		return s.appendOperation(ctx, tx, shift.ID, model.OpCancel, nil, actorID, nil)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("shift_id", shiftID.String()).Msg("shift canceled")
	resp := toShiftResponse(shift)
	return &resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *shiftService) GetActive(ctx context.Context, operatorID uuid.UUID, deviceID *string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.FindOpen(ctx, operatorID, deviceID)
	if err != nil {
		return nil, err
	}
	resp := toShiftResponse(shift)
	return &resp, nil
}

func (s *shiftService) History(ctx context.Context, filter dto.ShiftHistoryFilter) (*dto.ShiftHistoryResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	var operatorID *uuid.UUID
	if filter.OperatorID != "" {
		id, err := parseID("operator_id", filter.OperatorID)
		if err != nil {
			return nil, err
		}
		operatorID = &id
	}

	shifts, total, err := s.repo.History(ctx, operatorID, filter.Page, filter.Limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ShiftResponse, len(shifts))
	for i := range shifts {
		data[i] = toShiftResponse(&shifts[i])
	}
	return &dto.ShiftHistoryResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *shiftService) appendOperation(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID, kind string, amount *decimal.Decimal, actorID uuid.UUID, payload map[string]any) error {
	op := &model.ShiftOperation{
		ShiftID:   shiftID,
		Kind:      kind,
		Amount:    amount,
		ActorID:   actorID,
		CreatedAt: s.now(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		op.Payload = datatypes.JSON(raw)
	}
	return s.repo.CreateOperation(ctx, tx, op)
}

func toShiftSummary(shift *model.Shift, t ShiftTotals) dto.ShiftSummary {
	methods := make([]dto.MethodTotal, len(t.PaymentsByMethod))
	for i, m := range t.PaymentsByMethod {
		methods[i] = dto.MethodTotal{Method: m.Method, Count: m.Count, Amount: m.Amount}
	}
	summary := dto.ShiftSummary{
		ShiftID:          shift.ID.String(),
		OperatorID:       shift.OperatorID.String(),
		DeviceID:         shift.DeviceID,
		Status:           shift.Status,
		OpeningFloat:     t.OpeningFloat,
		CashCollected:    t.CashCollected,
		CashWithdrawals:  t.CashWithdrawals,
		CashDeposits:     t.CashDeposits,
		CashExpected:     t.CashExpected,
		CashDeclared:     shift.ClosingDeclaredCash,
		CashOverShort:    shift.CashOverShort,
		TicketsCount:     t.TicketsCount,
		SalesTotal:       t.SalesTotal,
		PaymentsByMethod: methods,
		OpenedAt:         fmtTime(shift.OpenedAt),
		ClosedAt:         fmtTimePtr(shift.ClosedAt),
	}
	if shift.CashOverShort != nil {
		pct, class := classifyVariance(*shift.CashOverShort, t.CashExpected)
		summary.Variance = &dto.VarianceResponse{Amount: *shift.CashOverShort, Percentage: pct, Classification: class}
	}
	return summary
}
