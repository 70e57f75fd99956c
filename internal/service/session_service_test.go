package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSession_NormalizesPlateAndChecksQuota(t *testing.T) {
	f := newFixture(t)

	resp, err := f.sessions.Open(context.Background(), f.operator.ID, dto.OpenSessionRequest{
		Plate: " ab-cd.12 ", SectorID: f.sector.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ABCD12", resp.Plate)
	assert.Equal(t, model.SessionActive, resp.Status)
	assert.Equal(t, []string{infra.ResourceSession}, f.quota.calls)
}

func TestOpenSession_SecondActiveSessionRejected(t *testing.T) {
	f := newFixture(t)
	req := dto.OpenSessionRequest{Plate: "ABCD12", SectorID: f.sector.ID.String()}

	_, err := f.sessions.Open(context.Background(), f.operator.ID, req)
	require.NoError(t, err)

	_, err = f.sessions.Open(context.Background(), f.operator.ID, dto.OpenSessionRequest{Plate: "abcd-12", SectorID: f.sector.ID.String()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrActiveSessionExists))
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
}

func TestOpenSession_OperatorNotAssigned(t *testing.T) {
	f := newFixture(t)
	other := model.Sector{ID: uuid.New(), Name: "Norte", Active: true}
	f.store.sectors[other.ID] = other

	_, err := f.sessions.Open(context.Background(), f.operator.ID, dto.OpenSessionRequest{Plate: "ZZ9999", SectorID: other.ID.String()})
	assert.ErrorIs(t, err, apperr.ErrOperatorNotAssigned)
}

func TestOpenSession_StreetScopedAssignment(t *testing.T) {
	f := newFixture(t)
	op := model.Operator{ID: uuid.New(), Username: "op2", Role: model.RoleOperator, Active: true}
	f.store.operators[op.ID] = op
	streetID := f.street.ID
	f.store.assignments = append(f.store.assignments, model.OperatorAssignment{
		ID: uuid.New(), OperatorID: op.ID, SectorID: f.sector.ID, StreetID: &streetID,
		ValidFrom: time.Now().Add(-time.Hour),
	})

	street := f.street.ID.String()
	_, err := f.sessions.Open(context.Background(), op.ID, dto.OpenSessionRequest{Plate: "AA1111", SectorID: f.sector.ID.String(), StreetID: &street})
	require.NoError(t, err)

	_, err = f.sessions.Open(context.Background(), op.ID, dto.OpenSessionRequest{Plate: "BB2222", SectorID: f.sector.ID.String()})
	assert.ErrorIs(t, err, apperr.ErrOperatorNotAssigned)
}

func TestOpenSession_InactiveOperator(t *testing.T) {
	f := newFixture(t)
	op := f.store.operators[f.operator.ID]
	op.Active = false
	f.store.operators[op.ID] = op

	_, err := f.sessions.Open(context.Background(), f.operator.ID, dto.OpenSessionRequest{Plate: "ABCD12", SectorID: f.sector.ID.String()})
	assert.ErrorIs(t, err, apperr.ErrOperatorInactive)
}

func TestOpenSession_QuotaDeniedAndQuotaFailure(t *testing.T) {
	f := newFixture(t)
	req := dto.OpenSessionRequest{Plate: "ABCD12", SectorID: f.sector.ID.String()}

	f.quota.denied[infra.ResourceSession] = true
	_, err := f.sessions.Open(context.Background(), f.operator.ID, req)
	assert.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))

	f.quota.denied[infra.ResourceSession] = false
	f.quota.err = errors.New("quota: unreachable")
	_, err = f.sessions.Open(context.Background(), f.operator.ID, req)
	assert.Equal(t, apperr.KindExternalDependency, apperr.KindOf(err))
	assert.Empty(t, f.store.sessions, "a failed capability check must not create the session")
}

func TestCheckout_PricesStayAndCreatesSale(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)

	// 7m10s bills as 8 minutes: max(8*50, 500) = 500
	ended := sess.StartedAt.Add(7*time.Minute + 10*time.Second).UTC().Format(time.RFC3339)
	resp, err := f.sessions.Checkout(context.Background(), f.operator.ID, sess.ID, dto.CheckoutRequest{EndedAt: ended})
	require.NoError(t, err)

	assert.Equal(t, model.SessionToPay, resp.Session.Status)
	assert.Equal(t, 8, resp.Breakdown.Minutes)
	assert.True(t, resp.Breakdown.MinimumApplied)
	assert.True(t, dec("500").Equal(resp.Session.NetAmount))
	require.NotNil(t, resp.Session.Sale)
	assert.True(t, dec("500").Equal(resp.Session.Sale.Total))
	assert.True(t, dec("420.17").Equal(resp.Session.Sale.NetAmount))
	assert.True(t, dec("79.83").Equal(resp.Session.Sale.TaxAmount))
	assert.False(t, resp.Session.Sale.Closed)
	assert.Nil(t, resp.Session.Sale.IssuedAt)
}

func TestCheckout_TwentyMinutesAtRate(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)

	resp := f.checkout(t, sess, 20)
	assert.True(t, dec("1000").Equal(resp.Session.NetAmount))
	assert.False(t, resp.Breakdown.MinimumApplied)
}

func TestCheckout_Twice(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)
	f.checkout(t, sess, 20)

	_, err := f.sessions.Checkout(context.Background(), f.operator.ID, sess.ID, dto.CheckoutRequest{})
	assert.ErrorIs(t, err, apperr.ErrSessionNotActive)
	assert.Len(t, f.store.sales, 1)
}

func TestCheckout_NoActiveTariff(t *testing.T) {
	f := newFixture(t)
	delete(f.store.profiles, f.profile.ID)
	sess := f.seedSession("ABCD12", time.Hour)

	_, err := f.sessions.Checkout(context.Background(), f.operator.ID, sess.ID, dto.CheckoutRequest{})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
	assert.Equal(t, model.SessionActive, f.sessionStatus(t, sess.ID))
}

func TestCheckout_FullDiscountClosesImmediately(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)
	discount := f.discount.ID.String()

	resp, err := f.sessions.Checkout(context.Background(), f.operator.ID, sess.ID, dto.CheckoutRequest{DiscountRuleID: &discount})
	require.NoError(t, err)
	assert.True(t, resp.Session.NetAmount.IsZero())
	assert.True(t, resp.Session.GrossAmount.Equal(resp.Session.DiscountAmount))
	assert.Equal(t, model.SessionClosed, resp.Session.Status)
	assert.NotNil(t, resp.Session.Sale.IssuedAt)
	assert.Equal(t, []string{model.SessionToPay, model.SessionPaid, model.SessionClosed}, f.store.statusLog[sess.ID])
}

func TestMarkPaid_OnlyFromToPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.seedSession("ABCD12", time.Hour)

	_, err := f.sessions.MarkPaid(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
	assert.Equal(t, model.SessionActive, f.sessionStatus(t, sess.ID))

	f.checkout(t, sess, 20)
	resp, err := f.sessions.MarkPaid(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionPaid, resp.Status)

	_, err = f.sessions.MarkPaid(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.sessions.MarkPaid(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCloseSession_OnlyFromPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.seedSession("ABCD12", time.Hour)

	_, err := f.sessions.Close(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "ACTIVE cannot close")

	out := f.checkout(t, sess, 20)
	_, err = f.sessions.Close(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "TO_PAY cannot close")
	assert.Equal(t, model.SessionToPay, f.sessionStatus(t, sess.ID))

	saleID := uuid.MustParse(out.Session.Sale.ID)
	require.Nil(t, f.store.sales[saleID].IssuedAt)

	_, err = f.sessions.MarkPaid(ctx, sess.ID)
	require.NoError(t, err)
	resp, err := f.sessions.Close(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, resp.Status)
	assert.NotNil(t, f.store.sales[saleID].IssuedAt, "closing stamps issued_at")

	_, err = f.sessions.Close(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestListSessionPayments(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)
	out := f.checkout(t, sess, 20)
	f.pay(t, out.Session.Sale.ID, "", model.MethodCard, "400", false)
	f.pay(t, out.Session.Sale.ID, "", model.MethodTransfer, "600", false)

	ps, err := f.sessions.ListPayments(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	for _, p := range ps {
		require.NotNil(t, p.SessionID)
		assert.Equal(t, sess.ID.String(), *p.SessionID)
	}

	_, err = f.sessions.ListPayments(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCancelSession(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)

	resp, err := f.sessions.Cancel(context.Background(), sess.ID, dto.CancelSessionRequest{Reason: "wrong plate"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionCanceled, resp.Status)

	_, err = f.sessions.Cancel(context.Background(), sess.ID, dto.CancelSessionRequest{Reason: "again"})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCancelSession_ClosedRejected(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)
	out := f.checkout(t, sess, 20)
	f.pay(t, out.Session.Sale.ID, "", model.MethodCard, "1000", false)
	require.Equal(t, model.SessionClosed, f.sessionStatus(t, sess.ID))

	_, err := f.sessions.Cancel(context.Background(), sess.ID, dto.CancelSessionRequest{Reason: "too late"})
	assert.ErrorIs(t, err, apperr.ErrSessionAlreadyClosed)
}

func TestGetSession_IncludesSaleState(t *testing.T) {
	f := newFixture(t)
	sess := f.seedSession("ABCD12", time.Hour)
	out := f.checkout(t, sess, 20)
	f.pay(t, out.Session.Sale.ID, "", model.MethodCard, "400", false)

	resp, err := f.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Sale)
	assert.True(t, dec("400").Equal(resp.Sale.Paid))
	assert.False(t, resp.Sale.Closed)
}
