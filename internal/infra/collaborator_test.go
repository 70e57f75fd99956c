package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaClient_CanCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/can-create", r.URL.Path)
		var req quotaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		allowed := req.ResourceKind != ResourceOperator
		_ = json.NewEncoder(w).Encode(QuotaDecision{Allowed: allowed, Current: 3, Limit: 3})
	}))
	defer srv.Close()

	c := NewQuotaClient(srv.URL, nil)
	d, err := c.CanCreate(context.Background(), ResourceSession)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = c.CanCreate(context.Background(), ResourceOperator)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
}

func TestQuotaClient_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewQuotaClient(srv.URL, nil).CanCreate(context.Background(), ResourceSession)
	assert.ErrorContains(t, err, "returned 502")
}

func TestIndexClient_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indices/UF", r.URL.Path)
		_, _ = w.Write([]byte(`{"value":"39485.65","date":"2026-10-18"}`))
	}))
	defer srv.Close()

	v, err := NewIndexClient(srv.URL, nil).Current(context.Background(), "UF")
	require.NoError(t, err)
	assert.Equal(t, "UF", v.Code)
	assert.True(t, decimal.RequireFromString("39485.65").Equal(v.Value))
}

func TestAllowAllQuota(t *testing.T) {
	d, err := AllowAllQuota{}.CanCreate(context.Background(), ResourcePricingRule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
