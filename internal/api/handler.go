// Package api provides the HTTP handlers for wallets, trades, allocation
// plans, quotes and comparisons, plus the WebSocket hub that streams ledger
// events.
//
// All monetary values use the money package; never float64 for money.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
	"github.com/atmx/paper-ledger/internal/pricing"
	"github.com/atmx/paper-ledger/internal/wallet"
)

// Handler serves the ledger API.
type Handler struct {
	wallets      *wallet.Manager
	feed         pricing.Feed
	hub          *WSHub // optional
	startingCash money.Money
	tradeTimeout time.Duration
}

// Config holds the request-level defaults of a Handler.
type Config struct {
	StartingCash money.Money
	TradeTimeout time.Duration // 0 leaves the request context alone
}

// NewHandler creates the API handler. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewHandler(wallets *wallet.Manager, feed pricing.Feed, hub *WSHub, cfg Config) *Handler {
	return &Handler{
		wallets:      wallets,
		feed:         feed,
		hub:          hub,
		startingCash: cfg.StartingCash,
		tradeTimeout: cfg.TradeTimeout,
	}
}

// Routes registers every endpoint on r, which is expected to be mounted at
// /api/v1.
func (h *Handler) Routes(r chi.Router) {
	if h.hub != nil {
		r.Get("/ws", h.hub.HandleWS)
	}

	r.Route("/wallets", func(r chi.Router) {
		r.Get("/", h.ListWallets)
		r.Post("/", h.CreateWallet)

		r.Route("/{walletID}", func(r chi.Router) {
			r.Get("/summary", h.GetSummary)
			r.Get("/positions", h.GetPositions)
			r.Get("/transactions", h.ListTransactions)

			r.Post("/estimate", h.EstimateTrade)
			r.Post("/validate", h.ValidateTrade)
			r.Post("/trades", h.ExecuteTrade)

			r.Get("/allocation", h.GetAllocation)
			r.Delete("/allocation", h.ClearAllocation)
			r.Post("/allocation/equal", h.PlanEqual)
			r.Post("/allocation/derive", h.DerivePlan)
			r.Put("/allocation/{ticker}", h.SetAllocation)
			r.Delete("/allocation/{ticker}", h.RemoveAllocation)
		})
	})

	r.Get("/prices", h.ListPrices)
	r.Get("/prices/{ticker}", h.GetPrice)
	r.Put("/prices/{ticker}", h.SetPrice)

	r.Post("/compare", h.Compare)
}

// lookup resolves the {walletID} URL parameter, writing the error response
// itself when it fails.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*wallet.Wallet, bool) {
	wal, err := h.wallets.Get(r.Context(), chi.URLParam(r, "walletID"))
	if err != nil {
		writeFailure(w, err)
		return nil, false
	}
	return wal, true
}

func (h *Handler) tradeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.tradeTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.tradeTimeout)
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure writes err with the status its kind maps to. Internal errors
// are logged and not echoed.
func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		writeError(w, "internal error", status)
		return
	}
	writeError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrNotPersisted):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrWalletNotFound),
		errors.Is(err, model.ErrUnknownTicker):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrInsufficientShares),
		errors.Is(err, model.ErrIncompletePlan),
		errors.Is(err, model.ErrWalletExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidPrice),
		errors.Is(err, model.ErrZeroQuantity),
		errors.Is(err, model.ErrInvalidTicker),
		errors.Is(err, model.ErrInvalidPercent),
		errors.Is(err, model.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
