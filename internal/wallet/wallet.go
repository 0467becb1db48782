// Package wallet implements the paper-trading ledger: a cash balance and a
// set of positions that trades are applied to atomically, with an
// append-only record of every processed order.
//
// Each Wallet serializes its mutations with a mutex. Quote lookups and
// persistence happen outside the lock; the lock covers only the in-memory
// re-validation and state transition.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/paper-ledger/internal/allocation"
	"github.com/atmx/paper-ledger/internal/compare"
	"github.com/atmx/paper-ledger/internal/estimate"
	"github.com/atmx/paper-ledger/internal/metrics"
	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
	"github.com/atmx/paper-ledger/internal/pricing"
	"github.com/atmx/paper-ledger/internal/store"
	"github.com/atmx/paper-ledger/internal/ticker"
	"github.com/atmx/paper-ledger/internal/validate"
)

// ErrNotPersisted is returned alongside a processed transaction whose commit
// could not be written to the store. The in-memory wallet has moved on.
var ErrNotPersisted = errors.New("wallet: transaction applied but not persisted")

// persistTimeout bounds a commit that outlives the caller's context.
const persistTimeout = 5 * time.Second

// Options are the collaborators shared by every wallet of a Manager.
type Options struct {
	Quotes  pricing.Quoter
	Store   store.Store // nil keeps wallets in memory only
	Checker allocation.Checker

	// OnTransaction is called after every processed order, outside the lock.
	OnTransaction func(model.Transaction)
}

// Wallet owns a cash balance, positions and transactions. Safe for
// concurrent use.
type Wallet struct {
	mu       sync.Mutex
	id       string
	currency string
	created  time.Time
	cash     money.Money
	holdings map[string]model.Holding
	ledger   []model.Transaction // ascending seq
	version  int64
	plan     allocation.Plan

	opts Options
	now  func() time.Time
}

func newWallet(state model.WalletState, txs []model.Transaction, opts Options) *Wallet {
	w := &Wallet{
		id:       state.ID,
		currency: state.Currency,
		created:  state.CreatedAt,
		cash:     state.Cash,
		holdings: make(map[string]model.Holding, len(state.Holdings)),
		version:  state.Version,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, h := range state.Holdings {
		w.holdings[h.Ticker] = h
	}
	w.ledger = append(w.ledger, txs...)
	sort.Slice(w.ledger, func(i, j int) bool { return w.ledger[i].Seq < w.ledger[j].Seq })
	return w
}

func (w *Wallet) ID() string { return w.id }
func (w *Wallet) Currency() string { return w.currency }

// Snapshot returns the wallet's committed state.
func (w *Wallet) Snapshot() model.WalletState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wallet) stateLocked() model.WalletState {
	holdings := make([]model.Holding, 0, len(w.holdings))
	for _, h := range w.holdings {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Ticker < holdings[j].Ticker })
	return model.WalletState{
		ID:        w.id,
		Currency:  w.currency,
		Cash:      w.cash,
		Holdings:  holdings,
		Version:   w.version,
		CreatedAt: w.created,
	}
}

// quote looks up the current price of sym. An unknown ticker is tolerated
// for limit orders, which do not need a market price.
func (w *Wallet) quote(ctx context.Context, order model.TradeOrder) (money.Money, error) {
	q, err := w.opts.Quotes.Quote(ctx, order.Ticker)
	if err == nil {
		return q.Price, nil
	}
	if errors.Is(err, model.ErrUnknownTicker) && order.OrderType == model.OrderLimit {
		return money.Zero, nil
	}
	return money.Zero, err
}

// Estimate projects order at the current price. It takes no lock.
func (w *Wallet) Estimate(ctx context.Context, order model.TradeOrder) (model.Estimate, error) {
	sym, err := ticker.Parse(order.Ticker)
	if err != nil {
		return model.Estimate{}, err
	}
	order.Ticker = sym

	price, err := w.quote(ctx, order)
	if err != nil {
		return model.Estimate{}, err
	}
	return estimate.Estimate(order, price)
}

// Validate estimates order and checks it against the current balance and
// holdings. The result is advisory; ApplyTrade validates again.
func (w *Wallet) Validate(ctx context.Context, order model.TradeOrder) (validate.Valid, error) {
	est, err := w.Estimate(ctx, order)
	if err != nil {
		return validate.Valid{}, err
	}

	w.mu.Lock()
	snap := w.snapshotLocked(est.Ticker)
	w.mu.Unlock()

	return validate.Check(est, snap)
}

func (w *Wallet) snapshotLocked(sym string) validate.Snapshot {
	return validate.Snapshot{Cash: w.cash, Shares: w.holdings[sym].Shares}
}

// ApplyTrade estimates, validates and applies order. A rejected order leaves
// cash and positions untouched and is recorded as a rejected transaction;
// the returned error carries the rejection kind.
func (w *Wallet) ApplyTrade(ctx context.Context, order model.TradeOrder) (model.Transaction, error) {
	r, err := w.apply(ctx, order)
	return r.tx, err
}

// TradeResult is a processed order with the wallet summary around it.
type TradeResult struct {
	Transaction model.Transaction   `json:"transaction"`
	Before      model.WalletSummary `json:"before"`
	After       model.WalletSummary `json:"after"`
	Changes     []compare.Change    `json:"changes"`
}

// Trade is ApplyTrade followed by a before/after comparison of the wallet
// summary. Summaries are marked with quotes fetched after the lock is
// released.
func (w *Wallet) Trade(ctx context.Context, order model.TradeOrder) (TradeResult, error) {
	r, err := w.apply(ctx, order)
	if r.tx.ID == "" {
		return TradeResult{}, err
	}
	res := TradeResult{Transaction: r.tx}

	before, berr := w.summarize(ctx, r.before)
	after, aerr := w.summarize(ctx, r.after)
	if berr == nil && aerr == nil {
		res.Before, res.After = before, after
		res.Changes = compare.Diff(compare.SummaryState("after", after), compare.SummaryState("before", before))
	}
	return res, err
}

type applied struct {
	tx            model.Transaction
	before, after model.WalletState
}

func (w *Wallet) apply(ctx context.Context, order model.TradeOrder) (applied, error) {
	start := time.Now()
	defer func() {
		metrics.TradeLatency.WithLabelValues(string(order.Side)).Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return applied{}, err
	}

	sym, err := ticker.Parse(order.Ticker)
	if err != nil {
		return w.reject(ctx, order, err)
	}
	order.Ticker = sym

	price, err := w.quote(ctx, order)
	if err != nil {
		if !errors.Is(err, model.ErrUnknownTicker) {
			return applied{}, fmt.Errorf("quote %s: %w", sym, err)
		}
		return w.reject(ctx, order, err)
	}

	est, err := estimate.Estimate(order, price)
	if err != nil {
		return w.reject(ctx, order, err)
	}

	w.mu.Lock()
	if err := ctx.Err(); err != nil {
		w.mu.Unlock()
		return applied{}, err
	}
	valid, err := validate.Check(est, w.snapshotLocked(sym))
	if err != nil {
		c := w.recordLocked(order, est, model.StatusRejected, err)
		w.mu.Unlock()
		return applied{tx: c.Transaction, before: c.State, after: c.State}, w.finish(ctx, c, err)
	}
	before := w.stateLocked()
	w.applyLocked(valid)
	c := w.recordLocked(order, est, model.StatusFilled, nil)
	w.mu.Unlock()

	return applied{tx: c.Transaction, before: before, after: c.State}, w.finish(ctx, c, nil)
}

// reject records an order that failed before reaching validation.
func (w *Wallet) reject(ctx context.Context, order model.TradeOrder, cause error) (applied, error) {
	est := model.Estimate{Ticker: ticker.Normalize(order.Ticker), Side: order.Side, OrderType: order.OrderType}
	w.mu.Lock()
	c := w.recordLocked(order, est, model.StatusRejected, cause)
	w.mu.Unlock()
	return applied{tx: c.Transaction, before: c.State, after: c.State}, w.finish(ctx, c, cause)
}

// applyLocked moves cash and shares for a validated order.
func (w *Wallet) applyLocked(v validate.Valid) {
	sym, qty, total := v.Ticker(), v.Shares(), v.Total()
	h, held := w.holdings[sym]

	switch v.Side() {
	case model.SideBuy:
		w.cash = w.cash.Sub(total)
		if !held {
			h = model.Holding{Ticker: sym}
		}
		h.Shares = h.Shares.Add(qty)
		h.CostBasis = h.CostBasis.Add(total)
		w.holdings[sym] = h

	case model.SideSell:
		w.cash = w.cash.Add(total)
		if qty.Equal(h.Shares) {
			delete(w.holdings, sym)
			return
		}
		reduction := money.New(h.CostBasis.Decimal().Mul(qty.Ratio(h.Shares)))
		h.Shares = h.Shares.Sub(qty)
		h.CostBasis = h.CostBasis.Sub(reduction)
		w.holdings[sym] = h
	}
}

// recordLocked appends the transaction for a processed order and bumps the
// version. It returns the commit to persist.
func (w *Wallet) recordLocked(order model.TradeOrder, est model.Estimate, status model.TxStatus, cause error) store.Commit {
	w.version++
	tx := model.Transaction{
		ID:            uuid.New().String(),
		WalletID:      w.id,
		Seq:           w.version,
		Ticker:        est.Ticker,
		Side:          order.Side,
		OrderType:     order.OrderType,
		Shares:        est.Shares,
		PricePerShare: est.Price,
		Total:         est.Total,
		Status:        status,
		Timestamp:     w.now(),
	}
	if cause != nil {
		tx.Reason = model.Reason(cause)
	}
	w.ledger = append(w.ledger, tx)
	return store.Commit{State: w.stateLocked(), Transaction: tx}
}

// finish persists c and reports it. cause is the rejection error, if any.
func (w *Wallet) finish(ctx context.Context, c store.Commit, cause error) error {
	tx := c.Transaction
	metrics.TradesTotal.WithLabelValues(string(tx.Side), string(tx.Status)).Inc()

	if cause != nil {
		metrics.TradeRejections.WithLabelValues(tx.Reason).Inc()
		slog.Info("trade rejected",
			"wallet", w.id,
			"tx", tx.ID,
			"ticker", tx.Ticker,
			"side", tx.Side,
			"reason", tx.Reason,
			"err", cause,
		)
	} else {
		metrics.TradedNotional.WithLabelValues(tx.Ticker, string(tx.Side)).Add(tx.Total.Decimal().InexactFloat64())
		slog.Info("trade filled",
			"wallet", w.id,
			"tx", tx.ID,
			"ticker", tx.Ticker,
			"side", tx.Side,
			"shares", tx.Shares.String(),
			"price", tx.PricePerShare.String(),
			"total", tx.Total.String(),
			"cash", c.State.Cash.String(),
		)
	}

	var persistErr error
	if w.opts.Store != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := w.opts.Store.Commit(pctx, c); err != nil {
			metrics.PersistFailures.Inc()
			slog.Error("commit failed", "wallet", w.id, "tx", tx.ID, "seq", tx.Seq, "err", err)
			persistErr = fmt.Errorf("%w: %v", ErrNotPersisted, err)
		}
	}

	if w.opts.OnTransaction != nil {
		w.opts.OnTransaction(tx)
	}
	if persistErr == nil {
		return cause
	}
	return errors.Join(cause, persistErr)
}

// Transactions returns up to limit transactions, newest first. A limit ≤ 0
// returns all of them.
func (w *Wallet) Transactions(limit int) []model.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.ledger)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Transaction, 0, n)
	for i := len(w.ledger) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, w.ledger[i])
	}
	return out
}
