// Package httpapi exposes the chain engine over a REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/parser"
	"github.com/Klingon-tech/klingex-tron/internal/service"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Engine is the facade surface the API serves.
type Engine interface {
	CreateWallet() (*service.WalletCreation, error)
	FetchTransactions(ctx context.Context, address string) ([]parser.ParsedTransaction, error)
	GetBalance(ctx context.Context, address string) (string, error)
	MonitorDeposits(walletID, address string) error
	HandleWithdrawal(ctx context.Context, recordID, walletID string, amountSun int64, toAddress string) error
	IsAddressActivated(ctx context.Context, address string) (bool, error)
	EstimateTransactionFee(ctx context.Context, from, to string, amountSun int64) (int64, error)
}

// Server is the REST HTTP server.
type Server struct {
	addr   string
	engine Engine
	server *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// New creates a server bound to addr, serving engine.
func New(addr string, engine Engine, logger zerolog.Logger) *Server {
	s := &Server{
		addr:   addr,
		engine: engine,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/wallets", s.handleCreateWallet)
		r.Get("/addresses/{address}/transactions", s.handleTransactions)
		r.Get("/addresses/{address}/balance", s.handleBalance)
		r.Get("/addresses/{address}/activated", s.handleActivated)
		r.Post("/monitors", s.handleStartMonitor)
		r.Post("/withdrawals", s.handleWithdrawal)
		r.Post("/fees/estimate", s.handleEstimateFee)
	})

	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening and serving in a background goroutine. It returns
// once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

// writeError maps engine errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var nerr *chainclient.NetworkError
	switch {
	case errors.Is(err, service.ErrChainInactive):
		status = http.StatusServiceUnavailable
	case errors.As(err, &nerr):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody parses a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.CreateWallet()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	txs, err := s.engine.FetchTransactions(r.Context(), address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if txs == nil {
		txs = []parser.ParsedTransaction{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	balance, err := s.engine.GetBalance(r.Context(), address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"address": address, "balance": balance})
}

func (s *Server) handleActivated(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	activated, err := s.engine.IsAddressActivated(r.Context(), address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"address": address, "activated": activated})
}

type monitorRequest struct {
	WalletID string `json:"wallet_id"`
	Address  string `json:"address"`
}

func (s *Server) handleStartMonitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.WalletID == "" || req.Address == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "wallet_id and address are required"})
		return
	}
	if err := s.engine.MonitorDeposits(req.WalletID, req.Address); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "monitoring"})
}

type withdrawalRequest struct {
	RecordID  string `json:"record_id"`
	WalletID  string `json:"wallet_id"`
	AmountSun int64  `json:"amount_sun"`
	ToAddress string `json:"to_address"`
}

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.RecordID == "" || req.WalletID == "" || req.ToAddress == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "record_id, wallet_id, and to_address are required"})
		return
	}
	if req.AmountSun <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount_sun must be positive"})
		return
	}
	if err := s.engine.HandleWithdrawal(r.Context(), req.RecordID, req.WalletID, req.AmountSun, req.ToAddress); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"record_id": req.RecordID, "status": "completed"})
}

type feeRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	AmountSun int64  `json:"amount_sun"`
}

func (s *Server) handleEstimateFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	fee, err := s.engine.EstimateTransactionFee(r.Context(), req.From, req.To, req.AmountSun)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"fee_sun": fee})
}
