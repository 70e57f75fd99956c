//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkcore/internal/config"
	"parkcore/internal/dto"
	"parkcore/internal/handler"
	"parkcore/internal/infra"
	"parkcore/internal/router"
	"parkcore/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string, headers ...string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func expect(t *testing.T, resp *http.Response, status int, dest any) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	if dest != nil {
		decodeJSON(t, resp, dest)
	} else {
		resp.Body.Close()
	}
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server     *httptest.Server
	token      string // admin JWT
	operatorID string
	sectorID   string
	queuedReports func(ctx context.Context) int64
}

const adminPassword = "e2e-admin-pass"

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("parkcore_test"),
		tcPostgres.WithUsername("parkcore"),
		tcPostgres.WithPassword("parkcore"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		TaxRate:            0.19,
		SaleDocType:        "boleta",
		WorkerPoolSize:     1,
		ReportStoragePath:  t.TempDir(),
	}

	// NewDatabase runs the goose migrations
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO operators (username, name, password_hash, role)
		VALUES ('admin', 'Admin E2E', ?, 'admin')`, string(hash)).Error)

	dispatcher := worker.NewDispatcher(rdb)
	r := router.New(cfg, db, rdb, router.Deps{
		Quota:   infra.AllowAllQuota{},
		Reports: dispatcher,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	env := &testEnv{server: srv}
	env.queuedReports = func(ctx context.Context) int64 {
		n, err := rdb.LLen(ctx, worker.QueueShiftReport).Result()
		require.NoError(t, err)
		return n
	}

	var login dto.LoginResponse
	expect(t, do(t, srv, http.MethodPost, "/v1/auth/login",
		jsonBody(t, dto.LoginRequest{Username: "admin", Password: adminPassword}), ""),
		http.StatusOK, &login)
	require.NotEmpty(t, login.AccessToken)
	env.token = login.AccessToken
	env.operatorID = login.User.ID

	// sector, tariff and an assignment so the admin can check vehicles in
	var sector dto.SectorResponse
	expect(t, env.post(t, "/v1/sectors", dto.CreateSectorRequest{Name: "Centro", Streets: []string{"Main St"}}), http.StatusCreated, &sector)
	env.sectorID = sector.ID

	var profile dto.ProfileResponse
	expect(t, env.post(t, "/v1/pricing/profiles", dto.CreateProfileRequest{
		SectorID: sector.ID, Name: "Weekday", ActiveFrom: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}), http.StatusCreated, &profile)
	expect(t, env.post(t, "/v1/pricing/profiles/"+profile.ID+"/rules", dto.CreateRuleRequest{
		Name: "Per minute", PricePerMinute: decimal.NewFromInt(50), MinimumAmount: decimal.NewFromInt(500),
	}), http.StatusCreated, nil)
	expect(t, env.post(t, "/v1/operators/"+env.operatorID+"/assignments", dto.CreateAssignmentRequest{
		SectorID: sector.ID, ValidFrom: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}), http.StatusCreated, nil)

	return env
}

func (e *testEnv) post(t *testing.T, path string, body any, headers ...string) *http.Response {
	t.Helper()
	return do(t, e.server, http.MethodPost, path, jsonBody(t, body), e.token, headers...)
}

// checkIn opens and checks out a session; the stay is under a minute so the
// 500 minimum applies.
func (e *testEnv) checkIn(t *testing.T, plate string) dto.CheckoutResponse {
	t.Helper()
	var sess dto.SessionResponse
	expect(t, e.post(t, "/v1/sessions", dto.OpenSessionRequest{Plate: plate, SectorID: e.sectorID}), http.StatusCreated, &sess)
	var out dto.CheckoutResponse
	expect(t, e.post(t, "/v1/sessions/"+sess.ID+"/checkout", dto.CheckoutRequest{}), http.StatusOK, &out)
	require.NotNil(t, out.Session.Sale)
	return out
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_CashCycleClosesShift(t *testing.T) {
	env := setupTestEnv(t)
	device := "pos-e2e"

	var shift dto.ShiftResponse
	expect(t, env.post(t, "/v1/shifts", dto.OpenShiftRequest{OpeningFloat: decimal.NewFromInt(1000), DeviceID: &device}), http.StatusCreated, &shift)

	out := env.checkIn(t, "ab-12-cd")
	assert.Equal(t, "AB12CD", out.Session.Plate)
	assert.True(t, decimal.NewFromInt(500).Equal(out.Session.NetAmount))

	var pay dto.PaymentResponse
	expect(t, env.post(t, "/v1/payments", dto.RecordPaymentRequest{
		SaleID: &out.Session.Sale.ID, ShiftID: &shift.ID, Method: "cash", Amount: decimal.NewFromInt(500),
	}), http.StatusCreated, &pay)
	assert.True(t, pay.SaleClosed)

	var sess dto.SessionResponse
	expect(t, do(t, env.server, http.MethodGet, "/v1/sessions/"+out.Session.ID, nil, env.token), http.StatusOK, &sess)
	assert.Equal(t, "CLOSED", sess.Status)

	var summary dto.ShiftSummary
	expect(t, env.post(t, "/v1/shifts/"+shift.ID+"/close", dto.CloseShiftRequest{DeclaredCash: decimal.NewFromInt(1500)}), http.StatusOK, &summary)
	assert.True(t, decimal.NewFromInt(1500).Equal(summary.CashExpected))
	require.NotNil(t, summary.CashOverShort)
	assert.True(t, summary.CashOverShort.IsZero())
	assert.Equal(t, 1, summary.TicketsCount)
	assert.EqualValues(t, 1, env.queuedReports(context.Background()), "the closed shift's report is queued")

	expect(t, env.post(t, "/v1/shifts/"+shift.ID+"/close", dto.CloseShiftRequest{DeclaredCash: decimal.Zero}), http.StatusConflict, nil)

	var ops []dto.ShiftOperationResponse
	expect(t, do(t, env.server, http.MethodGet, "/v1/shifts/"+shift.ID+"/operations", nil, env.token), http.StatusOK, &ops)
	require.Len(t, ops, 2)
	assert.Equal(t, "open", ops[0].Kind)
	assert.Equal(t, "close", ops[1].Kind)

	var paid []dto.PaymentResponse
	expect(t, do(t, env.server, http.MethodGet, "/v1/sessions/"+out.Session.ID+"/payments", nil, env.token), http.StatusOK, &paid)
	require.Len(t, paid, 1)
	assert.Equal(t, pay.ID, paid[0].ID)
}

func TestE2E_SecondActiveSessionConflicts(t *testing.T) {
	env := setupTestEnv(t)

	expect(t, env.post(t, "/v1/sessions", dto.OpenSessionRequest{Plate: "ZZ9999", SectorID: env.sectorID}), http.StatusCreated, nil)
	expect(t, env.post(t, "/v1/sessions", dto.OpenSessionRequest{Plate: "zz-9999", SectorID: env.sectorID}), http.StatusConflict, nil)
}

func TestE2E_ConfirmExternalIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	out := env.checkIn(t, "GW1234")
	req := dto.ConfirmExternalRequest{SaleID: &out.Session.Sale.ID, Amount: decimal.NewFromInt(500), TransactionID: "gw-1"}

	var first, second dto.PaymentResponse
	resp := env.post(t, "/v1/payments/confirm-external", req, handler.IdempotencyKeyHeader, "key-1")
	expect(t, resp, http.StatusCreated, &first)
	assert.True(t, first.SaleClosed)

	resp = env.post(t, "/v1/payments/confirm-external", req, handler.IdempotencyKeyHeader, "key-1")
	assert.Equal(t, "true", resp.Header.Get(handler.ReplayedHeader))
	expect(t, resp, http.StatusOK, &second)
	assert.Equal(t, first.ID, second.ID)

	var payments []dto.PaymentResponse
	expect(t, do(t, env.server, http.MethodGet, "/v1/sales/"+out.Session.Sale.ID+"/payments", nil, env.token), http.StatusOK, &payments)
	assert.Len(t, payments, 1)

	req.Amount = decimal.NewFromInt(400)
	expect(t, env.post(t, "/v1/payments/confirm-external", req, handler.IdempotencyKeyHeader, "key-1"), http.StatusConflict, nil)
}

func TestE2E_ShortfallDebtSettled(t *testing.T) {
	env := setupTestEnv(t)
	out := env.checkIn(t, "DB0001")

	var pay dto.PaymentResponse
	expect(t, env.post(t, "/v1/payments", dto.RecordPaymentRequest{
		SaleID: &out.Session.Sale.ID, Method: "card", Amount: decimal.NewFromInt(200), FinalPayment: true,
	}), http.StatusCreated, &pay)
	require.NotNil(t, pay.DebtID)

	var debts []dto.DebtResponse
	expect(t, do(t, env.server, http.MethodGet, "/v1/debts?plate=DB0001&status=pending", nil, env.token), http.StatusOK, &debts)
	require.Len(t, debts, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(debts[0].PrincipalAmount))

	var settled dto.SettleDebtResponse
	expect(t, env.post(t, "/v1/debts/"+*pay.DebtID+"/settle", dto.SettleDebtRequest{
		Amount: decimal.NewFromInt(300), Method: "transfer",
	}), http.StatusOK, &settled)
	assert.True(t, settled.Payment.SaleClosed)

	expect(t, env.post(t, "/v1/debts/"+*pay.DebtID+"/settle", dto.SettleDebtRequest{
		Amount: decimal.NewFromInt(300), Method: "transfer",
	}), http.StatusConflict, nil)
}

func TestE2E_ProtectedRoutesNeedToken(t *testing.T) {
	env := setupTestEnv(t)
	expect(t, do(t, env.server, http.MethodGet, "/v1/sectors", nil, ""), http.StatusUnauthorized, nil)
	expect(t, do(t, env.server, http.MethodGet, "/health", nil, ""), http.StatusOK, nil)
}
