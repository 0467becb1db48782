package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/allocation"
	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// --- Request/Response types ---

// CreateWalletRequest is the JSON body for POST /wallets. Omitted fields
// take the server defaults.
type CreateWalletRequest struct {
	ID           string       `json:"id,omitempty"`
	Currency     string       `json:"currency,omitempty"`
	StartingCash *money.Money `json:"starting_cash,omitempty"`
}

// ValidateResponse is the body of a successful POST /validate.
type ValidateResponse struct {
	Valid    bool           `json:"valid"`
	Estimate model.Estimate `json:"estimate"`
}

// TradeFailure is the body returned for a rejected order. The rejection is
// recorded, so the transaction is included.
type TradeFailure struct {
	Error       string             `json:"error"`
	Reason      string             `json:"reason"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// AllocationResponse is a plan with its completeness.
type AllocationResponse struct {
	Entries  []allocation.Entry `json:"entries"`
	Total    decimal.Decimal    `json:"total_percent"`
	Complete bool               `json:"complete"`
}

// EqualRequest is the JSON body for POST /allocation/equal.
type EqualRequest struct {
	Tickers []string `json:"tickers"`
}

// SetAllocationRequest is the JSON body for PUT /allocation/{ticker}.
type SetAllocationRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

// DeriveRequest is the JSON body for POST /allocation/derive. With Execute
// set, every leg is bought.
type DeriveRequest struct {
	Investment money.Money `json:"investment"`
	Execute    bool        `json:"execute"`
}

// DeriveResponse is a derivation and, when executed, its transactions.
type DeriveResponse struct {
	allocation.Derivation
	Transactions []model.Transaction `json:"transactions,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// --- Wallets ---

// CreateWallet handles POST /api/v1/wallets
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	cash := h.startingCash
	if req.StartingCash != nil {
		cash = *req.StartingCash
	}

	wal, err := h.wallets.Create(r.Context(), req.ID, req.Currency, cash)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wal.Snapshot())
}

// ListWallets handles GET /api/v1/wallets
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	list, err := h.wallets.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSummary handles GET /api/v1/wallets/{walletID}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s, err := wal.Summary(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetPositions handles GET /api/v1/wallets/{walletID}/positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	positions, err := wal.Positions(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// ListTransactions handles GET /api/v1/wallets/{walletID}/transactions?limit=N
// Newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, wal.Transactions(limit))
}

// --- Trades ---

// EstimateTrade handles POST /api/v1/wallets/{walletID}/estimate
func (h *Handler) EstimateTrade(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var order model.TradeOrder
	if !decode(w, r, &order) {
		return
	}
	est, err := wal.Estimate(r.Context(), order)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// ValidateTrade handles POST /api/v1/wallets/{walletID}/validate
func (h *Handler) ValidateTrade(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var order model.TradeOrder
	if !decode(w, r, &order) {
		return
	}
	v, err := wal.Validate(r.Context(), order)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Estimate: v.Estimate()})
}

// ExecuteTrade handles POST /api/v1/wallets/{walletID}/trades
// A filled order returns the transaction with the summary before and after.
func (h *Handler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var order model.TradeOrder
	if !decode(w, r, &order) {
		return
	}

	ctx, cancel := h.tradeContext(r)
	defer cancel()

	res, err := wal.Trade(ctx, order)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError || res.Transaction.ID == "" {
			writeFailure(w, err)
			return
		}
		tx := res.Transaction
		writeJSON(w, status, TradeFailure{Error: err.Error(), Reason: tx.Reason, Transaction: &tx})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Allocation ---

func allocationResponse(p allocation.Plan, complete bool) AllocationResponse {
	entries := p.Entries
	if entries == nil {
		entries = []allocation.Entry{}
	}
	return AllocationResponse{Entries: entries, Total: p.Total(), Complete: complete}
}

// GetAllocation handles GET /api/v1/wallets/{walletID}/allocation
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, allocationResponse(wal.Allocation()))
}

// ClearAllocation handles DELETE /api/v1/wallets/{walletID}/allocation
func (h *Handler) ClearAllocation(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	wal.ClearAllocation()
	w.WriteHeader(http.StatusNoContent)
}

// PlanEqual handles POST /api/v1/wallets/{walletID}/allocation/equal
func (h *Handler) PlanEqual(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req EqualRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := wal.PlanEqual(req.Tickers); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allocationResponse(wal.Allocation()))
}

// SetAllocation handles PUT /api/v1/wallets/{walletID}/allocation/{ticker}
func (h *Handler) SetAllocation(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req SetAllocationRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := wal.SetAllocation(chi.URLParam(r, "ticker"), req.Percent); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allocationResponse(wal.Allocation()))
}

// RemoveAllocation handles DELETE /api/v1/wallets/{walletID}/allocation/{ticker}
func (h *Handler) RemoveAllocation(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	wal.RemoveAllocation(chi.URLParam(r, "ticker"))
	writeJSON(w, http.StatusOK, allocationResponse(wal.Allocation()))
}

// DerivePlan handles POST /api/v1/wallets/{walletID}/allocation/derive
// Without execute it previews; with execute the plan must be complete and
// every leg is bought.
func (h *Handler) DerivePlan(w http.ResponseWriter, r *http.Request) {
	wal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req DeriveRequest
	if !decode(w, r, &req) {
		return
	}

	if !req.Execute {
		d, err := wal.PreviewPlan(r.Context(), req.Investment)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DeriveResponse{Derivation: d})
		return
	}

	ctx, cancel := h.tradeContext(r)
	defer cancel()

	txs, d, err := wal.ExecutePlan(ctx, req.Investment)
	if err != nil && len(txs) == 0 {
		writeFailure(w, err)
		return
	}
	resp := DeriveResponse{Derivation: d, Transactions: txs}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}
