package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttrade/ledger/internal/auth"
	"github.com/agenttrade/ledger/internal/domain"
	"github.com/agenttrade/ledger/internal/locker"
	"github.com/agenttrade/ledger/internal/services"
	"github.com/agenttrade/ledger/internal/services/pricer"
	ledgerstore "github.com/agenttrade/ledger/internal/storage/ledger"
)

func newTestServer(t *testing.T, key string) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	locks, err := locker.NewManager(dir+"/locks", time.Minute, nil)
	require.NoError(t, err)

	store := ledgerstore.NewStore(dir+"/ledgers", nil)
	t.Cleanup(func() { store.Close() })

	quotes := pricer.NewStatic(map[string]decimal.Decimal{
		"AAPL":    decimal.NewFromInt(300),
		"BTC-USD": decimal.NewFromInt(50000),
	})

	svc, err := services.NewTradeService(nil, locks, store, nil, quotes, nil, time.Second, decimal.NewFromInt(1000))
	require.NoError(t, err)

	srv := NewServer("", svc, store, auth.New(key), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postTrade(t *testing.T, ts *httptest.Server, path string, body map[string]string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestServer_BuyAndPosition(t *testing.T) {
	ts := newTestServer(t, "")

	resp := postTrade(t, ts, "/buy", map[string]string{
		"identity": "agent-1",
		"symbol":   "AAPL",
		"amount":   "3",
		"date":     "2025-06-02",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "accepted", body["status"])

	snapshot, ok := body["snapshot"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "100", snapshot["cash"])

	posResp, err := http.Get(ts.URL + "/position?identity=agent-1")
	require.NoError(t, err)
	defer posResp.Body.Close()
	require.Equal(t, http.StatusOK, posResp.StatusCode)
}

func TestServer_RejectionIsUnprocessable(t *testing.T) {
	ts := newTestServer(t, "")

	resp := postTrade(t, ts, "/buy", map[string]string{
		"identity": "agent-1",
		"symbol":   "AAPL",
		"amount":   "4", // costs 1200 against 1000 starting cash
		"date":     "2025-06-02",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "rejected", body["status"])

	rejection, ok := body["rejection"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(domain.RejectInsufficientFunds), rejection["kind"])
}

func TestServer_SellWithoutHoldings(t *testing.T) {
	ts := newTestServer(t, "")

	resp := postTrade(t, ts, "/sell", map[string]string{
		"identity": "agent-1",
		"symbol":   "AAPL",
		"amount":   "1",
		"date":     "2025-06-02",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody(t, resp)
	rejection, ok := body["rejection"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(domain.RejectUnknownSymbol), rejection["kind"])
}

func TestServer_BadRequests(t *testing.T) {
	ts := newTestServer(t, "")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing identity", map[string]string{"symbol": "AAPL", "amount": "1"}},
		{"missing symbol", map[string]string{"identity": "agent-1", "amount": "1"}},
		{"bad amount", map[string]string{"identity": "agent-1", "symbol": "AAPL", "amount": "three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTrade(t, ts, "/buy", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_PositionForUnknownIdentity(t *testing.T) {
	ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/position?identity=nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_APIKey(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	// no key
	resp := postTrade(t, ts, "/buy", map[string]string{
		"identity": "agent-1", "symbol": "AAPL", "amount": "1", "date": "2025-06-02",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// correct key
	payload, _ := json.Marshal(map[string]string{
		"identity": "agent-1", "symbol": "AAPL", "amount": "1", "date": "2025-06-02",
	})
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/buy", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(apiKeyHeader, "s3cret")

	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
}
