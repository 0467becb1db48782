package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/allocation"
	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// Allocation returns the wallet's target plan and whether it is complete.
func (w *Wallet) Allocation() (allocation.Plan, bool) {
	w.mu.Lock()
	p := w.plan
	w.mu.Unlock()
	return p, w.opts.Checker.IsComplete(p)
}

// PlanEqual replaces the plan with an equal split across tickers.
func (w *Wallet) PlanEqual(tickers []string) (allocation.Plan, error) {
	p, err := allocation.Equal(tickers)
	if err != nil {
		return allocation.Plan{}, err
	}
	w.mu.Lock()
	w.plan = p
	w.mu.Unlock()
	return p, nil
}

// SetAllocation sets one ticker's percentage. Other entries are not
// rebalanced.
func (w *Wallet) SetAllocation(sym string, pct decimal.Decimal) (allocation.Plan, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.plan.Set(sym, pct)
	if err != nil {
		return allocation.Plan{}, err
	}
	w.plan = p
	return p, nil
}

// RemoveAllocation drops one ticker from the plan.
func (w *Wallet) RemoveAllocation(sym string) allocation.Plan {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.plan = w.plan.Remove(sym)
	return w.plan
}

// ClearAllocation empties the plan.
func (w *Wallet) ClearAllocation() {
	w.mu.Lock()
	w.plan = allocation.Plan{}
	w.mu.Unlock()
}

// prices fetches quotes for tickers. Unknown tickers are left out.
func (w *Wallet) prices(ctx context.Context, tickers []string) (map[string]money.Money, error) {
	out := make(map[string]money.Money, len(tickers))
	for _, sym := range tickers {
		q, err := w.opts.Quotes.Quote(ctx, sym)
		if errors.Is(err, model.ErrUnknownTicker) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", sym, err)
		}
		out[sym] = q.Price
	}
	return out, nil
}

// PreviewPlan derives the per-ticker breakdown of investment without
// requiring a complete plan. The investment must be positive.
func (w *Wallet) PreviewPlan(ctx context.Context, investment money.Money) (allocation.Derivation, error) {
	p, _ := w.Allocation()
	prices, err := w.prices(ctx, p.Tickers())
	if err != nil {
		return allocation.Derivation{}, err
	}
	return w.opts.Checker.Preview(p, investment, prices)
}

// ExecutePlan derives the plan for investment and buys every leg at its
// derived price. Nothing is bought when the total cost exceeds the cash
// balance. A leg that fails stops execution; the transactions processed so
// far are returned with the error.
func (w *Wallet) ExecutePlan(ctx context.Context, investment money.Money) ([]model.Transaction, allocation.Derivation, error) {
	p, _ := w.Allocation()
	prices, err := w.prices(ctx, p.Tickers())
	if err != nil {
		return nil, allocation.Derivation{}, err
	}
	d, err := w.opts.Checker.Derive(p, investment, prices)
	if err != nil {
		return nil, allocation.Derivation{}, err
	}

	w.mu.Lock()
	cash := w.cash
	w.mu.Unlock()
	if cost := d.Cost(); cost.GreaterThan(cash) {
		return nil, d, &model.InsufficientFundsError{Available: cash, Required: cost}
	}

	txs := make([]model.Transaction, 0, len(d.Legs))
	for _, leg := range d.Legs {
		if leg.Shares.IsZero() {
			continue
		}
		limit := leg.Price.Decimal()
		tx, err := w.ApplyTrade(ctx, model.TradeOrder{
			Ticker:     leg.Ticker,
			Side:       model.SideBuy,
			OrderType:  model.OrderLimit,
			Amount:     leg.Shares.Decimal(),
			AmountType: model.AmountShares,
			LimitPrice: &limit,
		})
		if tx.ID != "" {
			txs = append(txs, tx)
		}
		if err != nil {
			slog.Warn("plan execution stopped", "wallet", w.id, "ticker", leg.Ticker, "err", err)
			return txs, d, err
		}
	}
	return txs, d, nil
}
