package service_test

import (
	"context"
	"testing"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortfallDebt checks out a 5000 session, pays 3000 cash and returns the
// resulting 2000 debt id together with the shift used.
func shortfallDebt(t *testing.T, f *fixture) (uuid.UUID, dto.ShiftResponse, model.ParkingSession) {
	t.Helper()
	shift := f.openShift(t, "0")
	sess := f.seedSession("ABCD12", 2*time.Hour)
	out := f.checkout(t, sess, 100)
	resp := f.pay(t, out.Session.Sale.ID, shift.ID, model.MethodCash, "3000", true)
	require.NotNil(t, resp.DebtID)
	return uuid.MustParse(*resp.DebtID), shift, sess
}

func TestSettleDebt_ClosesSaleAndSession(t *testing.T) {
	f := newFixture(t)
	debtID, shift, sess := shortfallDebt(t, f)

	resp, err := f.debts.Settle(context.Background(), f.operator.ID, debtID, dto.SettleDebtRequest{
		Amount: dec("2000"), Method: model.MethodCash, ShiftID: &shift.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.DebtSettled, resp.Debt.Status)
	assert.True(t, resp.Debt.PrincipalAmount.IsZero())
	assert.NotNil(t, resp.Debt.SettledAt)
	assert.True(t, resp.Payment.SaleClosed)
	assert.True(t, dec("5000").Equal(resp.Payment.SalePaid))
	assert.Equal(t, model.SessionClosed, f.sessionStatus(t, sess.ID))
	assert.Len(t, f.store.sales, 1, "settling reuses the session's sale")
}

func TestSettleDebt_TwiceIsStateConflictAndChangesNothing(t *testing.T) {
	f := newFixture(t)
	debtID, shift, _ := shortfallDebt(t, f)
	req := dto.SettleDebtRequest{Amount: dec("2000"), Method: model.MethodCash, ShiftID: &shift.ID}
	ctx := context.Background()

	_, err := f.debts.Settle(ctx, f.operator.ID, debtID, req)
	require.NoError(t, err)
	before, err := f.shifts.Totals(ctx, uuid.MustParse(shift.ID))
	require.NoError(t, err)
	payments := len(f.store.payments)

	_, err = f.debts.Settle(ctx, f.operator.ID, debtID, req)
	assert.ErrorIs(t, err, apperr.ErrDebtNotPending)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))

	after, err := f.shifts.Totals(ctx, uuid.MustParse(shift.ID))
	require.NoError(t, err)
	assert.Equal(t, payments, len(f.store.payments))
	assert.True(t, before.CashExpected.Equal(after.CashExpected))
	assert.True(t, before.SalesTotal.Equal(after.SalesTotal))
}

func TestSettleDebt_InsufficientAmount(t *testing.T) {
	f := newFixture(t)
	debtID, shift, _ := shortfallDebt(t, f)

	_, err := f.debts.Settle(context.Background(), f.operator.ID, debtID, dto.SettleDebtRequest{
		Amount: dec("1999.99"), Method: model.MethodCash, ShiftID: &shift.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrInsufficientAmount)
	assert.Equal(t, model.DebtPending, f.store.debts[debtID].Status)
}

func TestManualDebt_SettleCreatesSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.debts.CreateManual(ctx, dto.CreateDebtRequest{Plate: "xy-9876", Amount: dec("15000"), Origin: model.OriginFine})
	require.NoError(t, err)
	assert.Equal(t, "XY9876", d.Plate)
	assert.Equal(t, model.DebtPending, d.Status)

	resp, err := f.debts.Settle(ctx, f.operator.ID, uuid.MustParse(d.ID), dto.SettleDebtRequest{
		Amount: dec("15000"), Method: model.MethodCard, ApprovalCode: strPtr("A1B2"),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Debt.SaleID)
	sale := f.store.sales[uuid.MustParse(*resp.Debt.SaleID)]
	assert.Nil(t, sale.SessionID)
	assert.True(t, dec("15000").Equal(sale.Total))
	assert.NotNil(t, sale.IssuedAt)
	assert.True(t, resp.Payment.SaleClosed)
}

func TestCancelDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.debts.CreateManual(ctx, dto.CreateDebtRequest{Plate: "XY9876", Amount: dec("100"), Origin: model.OriginManual})
	require.NoError(t, err)
	id := uuid.MustParse(d.ID)

	resp, err := f.debts.Cancel(ctx, id, dto.CancelDebtRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, model.DebtCancelled, resp.Status)

	_, err = f.debts.Settle(ctx, f.operator.ID, id, dto.SettleDebtRequest{Amount: dec("100"), Method: model.MethodCard})
	assert.ErrorIs(t, err, apperr.ErrDebtNotPending)
}

func TestListDebtsByPlate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.debts.CreateManual(ctx, dto.CreateDebtRequest{Plate: "XY9876", Amount: dec("100"), Origin: model.OriginManual})
	require.NoError(t, err)
	_, err = f.debts.CreateManual(ctx, dto.CreateDebtRequest{Plate: "OTHER1", Amount: dec("100"), Origin: model.OriginManual})
	require.NoError(t, err)

	ds, err := f.debts.ListByPlate(ctx, "xy 9876", model.DebtPending)
	require.NoError(t, err)
	assert.Len(t, ds, 1)
}

func TestOpenFromShortfall_FullyPaidIsNoop(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)
	f.checkout(t, sess, 20)

	d, err := f.debts.OpenFromShortfall(context.Background(), sess.ID, dec("1000"))
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = f.debts.OpenFromShortfall(context.Background(), sess.ID, dec("250"))
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, dec("750").Equal(d.PrincipalAmount))
}
