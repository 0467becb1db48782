package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/api"
	"github.com/atmx/paper-ledger/internal/compare"
	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
	"github.com/atmx/paper-ledger/internal/pricing"
	"github.com/atmx/paper-ledger/internal/store"
	"github.com/atmx/paper-ledger/internal/wallet"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestEnv creates a Handler over an in-memory store and quote book,
// mounted on a chi router at /api/v1.
func newTestEnv(t *testing.T) (*pricing.Book, *store.MemoryStore, chi.Router) {
	t.Helper()
	book := pricing.NewBook()
	ms := store.NewMemoryStore()
	mgr := wallet.NewManager(wallet.Options{Quotes: book, Store: ms})
	h := api.NewHandler(mgr, book, nil, api.Config{StartingCash: money.MustParse("10000")})

	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return book, ms, r
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return v
}

func seedWallet(t *testing.T, router chi.Router, id string) {
	t.Helper()
	w := do(t, router, "POST", "/api/v1/wallets", api.CreateWalletRequest{ID: id})
	if w.Code != http.StatusCreated {
		t.Fatalf("create wallet: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func seedPrice(t *testing.T, book *pricing.Book, sym, price string) {
	t.Helper()
	if _, err := book.SetPrice(context.Background(), sym, money.MustParse(price)); err != nil {
		t.Fatalf("seed price: %v", err)
	}
}

func order(side model.Side, amount string, amountType model.AmountType) model.TradeOrder {
	return model.TradeOrder{Ticker: "AAPL", Side: side, OrderType: model.OrderMarket, Amount: d(amount), AmountType: amountType}
}

// --- Wallet tests ---

func TestCreateWallet_Defaults(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/wallets", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	state := decodeBody[model.WalletState](t, w)
	if state.ID == "" || state.Currency != "USD" || state.Cash.String() != "10000.00" {
		t.Errorf("expected generated USD wallet with 10000.00, got %+v", state)
	}
}

func TestCreateWallet_Duplicate(t *testing.T) {
	_, _, router := newTestEnv(t)
	seedWallet(t, router, "w1")

	w := do(t, router, "POST", "/api/v1/wallets", api.CreateWalletRequest{ID: "w1"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestListWallets(t *testing.T) {
	_, _, router := newTestEnv(t)
	seedWallet(t, router, "b")
	seedWallet(t, router, "a")

	w := do(t, router, "GET", "/api/v1/wallets", nil)
	list := decodeBody[[]model.WalletState](t, w)
	if len(list) != 2 || list[0].ID != "a" {
		t.Errorf("expected wallets a, b, got %+v", list)
	}
}

func TestGetSummary_UnknownWallet(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "GET", "/api/v1/wallets/missing/summary", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// --- Trade tests ---

func TestExecuteTrade_Buy(t *testing.T) {
	book, _, router := newTestEnv(t)
	seedPrice(t, book, "AAPL", "178")
	seedWallet(t, router, "w1")

	w := do(t, router, "POST", "/api/v1/wallets/w1/trades", order(model.SideBuy, "1780", model.AmountCurrency))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decodeBody[wallet.TradeResult](t, w)
	if res.Transaction.Shares.String() != "10.0000" || res.Transaction.Total.String() != "1780.00" {
		t.Errorf("expected 10 shares for 1780.00, got %s for %s", res.Transaction.Shares, res.Transaction.Total)
	}
	if res.After.CashBalance.String() != "8220.00" {
		t.Errorf("expected cash 8220.00 after, got %s", res.After.CashBalance)
	}

	w = do(t, router, "GET", "/api/v1/wallets/w1/summary", nil)
	s := decodeBody[model.WalletSummary](t, w)
	if s.TotalValue.String() != "10000.00" {
		t.Errorf("expected total value 10000.00, got %s", s.TotalValue)
	}
}

func TestExecuteTrade_InsufficientShares(t *testing.T) {
	book, _, router := newTestEnv(t)
	seedPrice(t, book, "AAPL", "178")
	seedWallet(t, router, "w1")
	do(t, router, "POST", "/api/v1/wallets/w1/trades", order(model.SideBuy, "3", model.AmountShares))

	w := do(t, router, "POST", "/api/v1/wallets/w1/trades", order(model.SideSell, "5", model.AmountShares))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	fail := decodeBody[api.TradeFailure](t, w)
	if fail.Reason != "insufficient_shares" || fail.Transaction == nil || fail.Transaction.Status != model.StatusRejected {
		t.Errorf("expected recorded insufficient_shares rejection, got %+v", fail)
	}

	w = do(t, router, "GET", "/api/v1/wallets/w1/positions", nil)
	positions := decodeBody[[]model.Position](t, w)
	if len(positions) != 1 || positions[0].Shares.String() != "3.0000" {
		t.Errorf("expected 3 shares held, got %+v", positions)
	}
}

func TestExecuteTrade_ErrorStatuses(t *testing.T) {
	book, _, router := newTestEnv(t)
	seedPrice(t, book, "AAPL", "178")
	seedWallet(t, router, "w1")

	tests := []struct {
		name  string
		order model.TradeOrder
		want  int
	}{
		{"insufficient funds", order(model.SideBuy, "20000", model.AmountCurrency), http.StatusConflict},
		{"zero amount", order(model.SideBuy, "0", model.AmountShares), http.StatusBadRequest},
		{"zero quantity", order(model.SideBuy, "0.00001", model.AmountShares), http.StatusBadRequest},
		{"unknown ticker", model.TradeOrder{Ticker: "NOPE", Side: model.SideBuy, OrderType: model.OrderMarket, Amount: d("1"), AmountType: model.AmountShares}, http.StatusNotFound},
		{"limit without price", model.TradeOrder{Ticker: "AAPL", Side: model.SideBuy, OrderType: model.OrderLimit, Amount: d("1"), AmountType: model.AmountShares}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/wallets/w1/trades", tt.order)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	w := do(t, router, "GET", "/api/v1/wallets/w1/transactions?limit=2", nil)
	txs := decodeBody[[]model.Transaction](t, w)
	if len(txs) != 2 || txs[0].Seq <= txs[1].Seq {
		t.Errorf("expected the 2 newest rejections, newest first, got %+v", txs)
	}
}

func TestExecuteTrade_InvalidBody(t *testing.T) {
	_, _, router := newTestEnv(t)
	seedWallet(t, router, "w1")

	req := httptest.NewRequest("POST", "/api/v1/wallets/w1/trades", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEstimateAndValidate(t *testing.T) {
	book, _, router := newTestEnv(t)
	seedPrice(t, book, "AAPL", "178")
	seedWallet(t, router, "w1")

	w := do(t, router, "POST", "/api/v1/wallets/w1/estimate", order(model.SideBuy, "1780", model.AmountCurrency))
	est := decodeBody[model.Estimate](t, w)
	if est.Shares.String() != "10.0000" {
		t.Errorf("expected 10.0000 shares, got %s", est.Shares)
	}

	w = do(t, router, "POST", "/api/v1/wallets/w1/validate", order(model.SideSell, "1", model.AmountShares))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for sell without shares, got %d", w.Code)
	}

	w = do(t, router, "GET", "/api/v1/wallets/w1/transactions", nil)
	if txs := decodeBody[[]model.Transaction](t, w); len(txs) != 0 {
		t.Errorf("estimate and validate must not record transactions, got %d", len(txs))
	}
}

func TestListTransactions_BadLimit(t *testing.T) {
	_, _, router := newTestEnv(t)
	seedWallet(t, router, "w1")

	w := do(t, router, "GET", "/api/v1/wallets/w1/transactions?limit=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// --- Allocation tests ---

func TestAllocation_EqualAndDerive(t *testing.T) {
	book, _, router := newTestEnv(t)
	seedPrice(t, book, "AAPL", "178")
	seedPrice(t, book, "MSFT", "400")
	seedWallet(t, router, "w1")

	w := do(t, router, "POST", "/api/v1/wallets/w1/allocation/equal", api.EqualRequest{Tickers: []string{"AAPL", "MSFT"}})
	plan := decodeBody[api.AllocationResponse](t, w)
	if !plan.Complete || len(plan.Entries) != 2 {
		t.Fatalf("expected complete 2-entry plan, got %+v", plan)
	}

	w = do(t, router, "POST", "/api/v1/wallets/w1/allocation/derive", api.DeriveRequest{Investment: money.MustParse("5000")})
	preview := decodeBody[api.DeriveResponse](t, w)
	if len(preview.Legs) != 2 || preview.Legs[0].Shares.String() != "14.0449" || len(preview.Transactions) != 0 {
		t.Errorf("expected preview with AAPL 14.0449 and no transactions, got %+v", preview)
	}

	w = do(t, router, "POST", "/api/v1/wallets/w1/allocation/derive", api.DeriveRequest{Investment: money.MustParse("5000"), Execute: true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	executed := decodeBody[api.DeriveResponse](t, w)
	if len(executed.Transactions) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(executed.Transactions))
	}
}

func TestAllocation_PreviewRejectsNegativeInvestment(t *testing.T) {
	book, _, router := newTestEnv(t)
	seedPrice(t, book, "AAPL", "178")
	seedWallet(t, router, "w1")

	do(t, router, "POST", "/api/v1/wallets/w1/allocation/equal", api.EqualRequest{Tickers: []string{"AAPL"}})

	w := do(t, router, "POST", "/api/v1/wallets/w1/allocation/derive", api.DeriveRequest{Investment: money.MustParse("-1000")})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAllocation_SetRemoveClear(t *testing.T) {
	_, _, router := newTestEnv(t)
	seedWallet(t, router, "w1")

	w := do(t, router, "PUT", "/api/v1/wallets/w1/allocation/aapl", api.SetAllocationRequest{Percent: d("60")})
	plan := decodeBody[api.AllocationResponse](t, w)
	if plan.Complete || !plan.Total.Equal(d("60")) || plan.Entries[0].Ticker != "AAPL" {
		t.Errorf("expected incomplete 60%% AAPL plan, got %+v", plan)
	}

	w = do(t, router, "PUT", "/api/v1/wallets/w1/allocation/MSFT", api.SetAllocationRequest{Percent: d("120")})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for percent over 100, got %d", w.Code)
	}

	w = do(t, router, "POST", "/api/v1/wallets/w1/allocation/derive", api.DeriveRequest{Investment: money.MustParse("100"), Execute: true})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for incomplete plan, got %d", w.Code)
	}

	w = do(t, router, "DELETE", "/api/v1/wallets/w1/allocation/AAPL", nil)
	if plan := decodeBody[api.AllocationResponse](t, w); len(plan.Entries) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}

	w = do(t, router, "DELETE", "/api/v1/wallets/w1/allocation", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

// --- Price and compare tests ---

func TestPrices(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "PUT", "/api/v1/prices/aapl", api.SetPriceRequest{Price: money.MustParse("178")})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, "GET", "/api/v1/prices/AAPL", nil)
	q := decodeBody[model.Quote](t, w)
	if q.Price.String() != "178.00" || q.PrevClose.String() != "178.00" {
		t.Errorf("expected 178.00 / 178.00, got %s / %s", q.Price, q.PrevClose)
	}

	w = do(t, router, "PUT", "/api/v1/prices/AAPL", api.SetPriceRequest{Price: money.Zero})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero price, got %d", w.Code)
	}

	w = do(t, router, "GET", "/api/v1/prices/NOPE", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = do(t, router, "GET", "/api/v1/prices", nil)
	if quotes := decodeBody[[]model.Quote](t, w); len(quotes) != 1 {
		t.Errorf("expected 1 quote, got %d", len(quotes))
	}
}

func TestCompare(t *testing.T) {
	_, _, router := newTestEnv(t)

	states := []compare.State{
		{Label: "Q1", Metrics: []compare.Metric{{ID: "revenue", Value: d("100")}, {ID: "cost", Value: d("50"), LowerIsBetter: true}}},
		{Label: "Q2", Metrics: []compare.Metric{{ID: "revenue", Value: d("120")}, {ID: "cost", Value: d("60"), LowerIsBetter: true}}},
	}
	w := do(t, router, "POST", "/api/v1/compare", api.CompareRequest{States: states, Best: []string{"revenue", "cost", "missing"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[api.CompareResponse](t, w)

	if len(resp.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(resp.Changes))
	}
	rev, cost := resp.Changes[0], resp.Changes[1]
	if rev.Direction != compare.Up || rev.Sentiment != compare.Positive || !rev.DiffPct.Equal(d("20")) {
		t.Errorf("expected revenue up/positive 20%%, got %+v", rev)
	}
	if cost.Direction != compare.Up || cost.Sentiment != compare.Negative {
		t.Errorf("expected cost up/negative, got %+v", cost)
	}
	if resp.Best["revenue"].Label != "Q2" || resp.Best["cost"].Label != "Q1" {
		t.Errorf("expected best revenue Q2 and cost Q1, got %+v", resp.Best)
	}
	if _, ok := resp.Best["missing"]; ok {
		t.Error("expected no best entry for a missing metric")
	}

	w = do(t, router, "POST", "/api/v1/compare", api.CompareRequest{States: states[:1]})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a single state, got %d", w.Code)
	}
}
