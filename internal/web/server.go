// Package web exposes the ledger's trade operations over HTTP with
// structured JSON results.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agenttrade/ledger/internal/auth"
	"github.com/agenttrade/ledger/internal/domain"
)

const (
	apiKeyHeader       = "X-API-Key"
	streamPollInterval = 2 * time.Second
)

// TradeAPI is the coordinator surface the server exposes.
type TradeAPI interface {
	Buy(ctx context.Context, identity, symbol string, amount decimal.Decimal, date string) (domain.Snapshot, error)
	Sell(ctx context.Context, identity, symbol string, amount decimal.Decimal, date string) (domain.Snapshot, error)
	GetPosition(ctx context.Context, identity string) (domain.Snapshot, error)
}

type recordReader interface {
	RecordsAfter(identity string, after uint64) ([]domain.LedgerRecord, error)
}

// Server serves the trade API and an SSE stream of appended ledger records.
type Server struct {
	addr    string
	trades  TradeAPI
	records recordReader
	keys    *auth.Keyring
	logger  *zap.Logger
}

// NewServer creates a web server for the given coordinator and record store.
func NewServer(addr string, trades TradeAPI, records recordReader, keys *auth.Keyring, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, trades: trades, records: records, keys: keys, logger: logger}
}

// Handler returns the routed HTTP handler, exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /buy", s.requireKey(s.handleTrade(domain.ActionBuy)))
	mux.HandleFunc("POST /sell", s.requireKey(s.handleTrade(domain.ActionSell)))
	mux.HandleFunc("GET /position", s.requireKey(s.handlePosition))
	mux.HandleFunc("GET /ledger/stream", s.requireKey(s.handleLedgerStream))
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("ledger API listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.keys.Validate(r.Header.Get(apiKeyHeader)) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or missing API key"})
			return
		}
		next(w, r)
	}
}

type tradeRequest struct {
	Identity string `json:"identity"`
	Symbol   string `json:"symbol"`
	Amount   string `json:"amount"`
	Date     string `json:"date,omitempty"`
}

type tradeResponse struct {
	Status   string           `json:"status"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
}

func (s *Server) handleTrade(action domain.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}
		if req.Identity == "" || req.Symbol == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity and symbol are required"})
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("bad amount %q", req.Amount)})
			return
		}

		var snapshot domain.Snapshot
		switch action {
		case domain.ActionBuy:
			snapshot, err = s.trades.Buy(r.Context(), req.Identity, req.Symbol, amount, req.Date)
		default:
			snapshot, err = s.trades.Sell(r.Context(), req.Identity, req.Symbol, amount, req.Date)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tradeResponse{Status: "accepted", Snapshot: &snapshot})
	}
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity is required"})
		return
	}

	snapshot, err := s.trades.GetPosition(r.Context(), identity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeResponse{Status: "ok", Snapshot: &snapshot})
}

// handleLedgerStream pushes newly appended records for one identity as
// server-sent events.
func (s *Server) handleLedgerStream(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity is required"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat keeps proxies from dropping the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	poll := time.NewTicker(streamPollInterval)
	defer poll.Stop()

	lastSeq := uint64(0)
	send := func() error {
		records, err := s.records.RecordsAfter(identity, lastSeq)
		if err != nil {
			return err
		}
		for _, rec := range records {
			payload, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: record\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastSeq = rec.Seq
		}
		return nil
	}

	if err := send(); err != nil {
		http.Error(w, "failed to load ledger records", http.StatusInternalServerError)
		s.logger.Error("ledger stream initial load", zap.String("identity", identity), zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-poll.C:
			if err := send(); err != nil {
				s.logger.Error("ledger stream poll", zap.String("identity", identity), zap.Error(err))
			}
		}
	}
}

// writeError maps coordinator failures onto HTTP statuses while keeping the
// body machine-readable.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status":    "rejected",
			"rejection": rej,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "busy",
			"error":     "identity is locked by another trade",
			"retryable": true,
		})
	case errors.Is(err, domain.ErrNoPriorPosition):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "empty",
			"error":  "identity has no recorded position",
		})
	case errors.Is(err, domain.ErrPriceNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "failed",
			"error":  "no price available for symbol",
		})
	default:
		s.logger.Error("trade request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "failed",
			"error":  "internal error, re-query position for ledger-confirmed state",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
