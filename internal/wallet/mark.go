package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// Positions returns every holding marked to the current quotes, sorted by
// ticker. A holding without a quote is marked at its average cost with
// Priced set to false.
func (w *Wallet) Positions(ctx context.Context) ([]model.Position, error) {
	positions, _, err := w.mark(ctx, w.Snapshot())
	return positions, err
}

// Summary aggregates cash and the marked positions.
func (w *Wallet) Summary(ctx context.Context) (model.WalletSummary, error) {
	return w.summarize(ctx, w.Snapshot())
}

func (w *Wallet) summarize(ctx context.Context, state model.WalletState) (model.WalletSummary, error) {
	_, summary, err := w.mark(ctx, state)
	return summary, err
}

func (w *Wallet) mark(ctx context.Context, state model.WalletState) ([]model.Position, model.WalletSummary, error) {
	summary := model.WalletSummary{
		WalletID:    state.ID,
		Currency:    state.Currency,
		CashBalance: state.Cash,
		TotalValue:  state.Cash,
	}

	positions := make([]model.Position, 0, len(state.Holdings))
	for _, h := range state.Holdings {
		q, err := w.opts.Quotes.Quote(ctx, h.Ticker)
		if err != nil && !errors.Is(err, model.ErrUnknownTicker) {
			return nil, model.WalletSummary{}, fmt.Errorf("quote %s: %w", h.Ticker, err)
		}
		p := markHolding(h, q, err == nil)
		positions = append(positions, p)

		summary.TotalValue = summary.TotalValue.Add(p.Value)
		summary.TotalGainLoss = summary.TotalGainLoss.Add(p.Gain)
		summary.DayChange = summary.DayChange.Add(p.DayChange)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Ticker < positions[j].Ticker })
	return positions, summary, nil
}

func markHolding(h model.Holding, q model.Quote, priced bool) model.Position {
	p := model.Position{
		Ticker:    h.Ticker,
		Shares:    h.Shares,
		CostBasis: h.CostBasis,
		Priced:    priced,
	}
	if !priced {
		p.CurrentPrice = money.New(h.CostBasis.Decimal().Div(h.Shares.Decimal()))
		p.Value = h.CostBasis
		return p
	}
	p.CurrentPrice = q.Price
	p.Value = q.Price.Mul(h.Shares)
	p.Gain = p.Value.Sub(h.CostBasis)
	p.DayChange = q.Price.Sub(q.PrevClose).Mul(h.Shares)
	return p
}
