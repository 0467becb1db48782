package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/paper-ledger/internal/compare"
	"github.com/atmx/paper-ledger/internal/metrics"
	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// SetPriceRequest is the JSON body for PUT /prices/{ticker}.
type SetPriceRequest struct {
	Price money.Money `json:"price"`
}

// CompareRequest is the JSON body for POST /compare. States are in
// chronological order; Best names the metrics to pick a best state for.
type CompareRequest struct {
	States []compare.State `json:"states"`
	Best   []string        `json:"best,omitempty"`
}

// BestState identifies the winning state for one metric.
type BestState struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// CompareResponse holds the latest change set, the period-over-period series
// and the best state per requested metric.
type CompareResponse struct {
	Changes []compare.Change     `json:"changes"`
	Steps   []compare.Step       `json:"steps"`
	Best    map[string]BestState `json:"best,omitempty"`
}

// ListPrices handles GET /api/v1/prices
func (h *Handler) ListPrices(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.feed.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

// GetPrice handles GET /api/v1/prices/{ticker}
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q, err := h.feed.Quote(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// SetPrice handles PUT /api/v1/prices/{ticker}
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req SetPriceRequest
	if !decode(w, r, &req) {
		return
	}
	q, err := h.feed.SetPrice(r.Context(), chi.URLParam(r, "ticker"), req.Price)
	if err != nil {
		writeFailure(w, err)
		return
	}
	metrics.PriceUpdates.Inc()
	slog.Debug("price updated", "ticker", q.Ticker, "price", q.Price.String())
	if h.hub != nil {
		h.hub.PriceUpdated(q)
	}
	writeJSON(w, http.StatusOK, q)
}

// Compare handles POST /api/v1/compare
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.States) < 2 {
		writeError(w, "at least two states are required", http.StatusBadRequest)
		return
	}

	n := len(req.States)
	resp := CompareResponse{
		Changes: compare.Diff(req.States[n-1], req.States[n-2]),
		Steps:   compare.Series(req.States),
	}
	for _, id := range req.Best {
		i, ok := compare.BestOf(id, req.States)
		if !ok {
			continue
		}
		if resp.Best == nil {
			resp.Best = make(map[string]BestState)
		}
		resp.Best[id] = BestState{Index: i, Label: req.States[i].Label}
	}
	writeJSON(w, http.StatusOK, resp)
}
