// Package allocation plans how an investment amount is split across assets
// by percentage, and derives per-asset dollar and share amounts from a plan.
//
// Plans are values: every edit returns a new Plan and never re-balances the
// other entries.
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/ticker"
)

// PercentPlaces is the resolution of a percentage set by hand.
const PercentPlaces = 2

// EqualPlaces is the resolution of an equal-split percentage. It is finer
// than PercentPlaces so large splits stay equal.
const EqualPlaces = 8

var hundred = decimal.NewFromInt(100)

// Entry assigns Percent (0..100) of the investment to Ticker.
type Entry struct {
	Ticker  string          `json:"ticker"`
	Percent decimal.Decimal `json:"percent"`
}

// Plan is an ordered list of entries with unique tickers.
type Plan struct {
	Entries []Entry `json:"entries"`
}

// Equal assigns 100/n percent, rounded down to EqualPlaces, to every ticker.
// The last entry absorbs the remainder so the total is exactly 100.
func Equal(tickers []string) (Plan, error) {
	syms, err := ticker.ParseAll(tickers)
	if err != nil {
		return Plan{}, err
	}
	if len(syms) == 0 {
		return Plan{}, fmt.Errorf("%w: no tickers to allocate", model.ErrInvalidTicker)
	}

	share := hundred.Div(decimal.NewFromInt(int64(len(syms)))).RoundFloor(EqualPlaces)
	entries := make([]Entry, len(syms))
	assigned := decimal.Zero
	for i, sym := range syms[:len(syms)-1] {
		entries[i] = Entry{Ticker: sym, Percent: share}
		assigned = assigned.Add(share)
	}
	entries[len(syms)-1] = Entry{Ticker: syms[len(syms)-1], Percent: hundred.Sub(assigned)}
	return Plan{Entries: entries}, nil
}

// Set returns a copy of p with ticker's percentage set to pct, appending the
// ticker when it is not yet in the plan.
func (p Plan) Set(sym string, pct decimal.Decimal) (Plan, error) {
	sym, err := ticker.Parse(sym)
	if err != nil {
		return p, err
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return p, fmt.Errorf("%w: %s for %s", model.ErrInvalidPercent, pct, sym)
	}
	pct = pct.Round(PercentPlaces)

	entries := make([]Entry, 0, len(p.Entries)+1)
	found := false
	for _, e := range p.Entries {
		if e.Ticker == sym {
			e.Percent = pct
			found = true
		}
		entries = append(entries, e)
	}
	if !found {
		entries = append(entries, Entry{Ticker: sym, Percent: pct})
	}
	return Plan{Entries: entries}, nil
}

// Remove returns a copy of p without ticker.
func (p Plan) Remove(sym string) Plan {
	sym = ticker.Normalize(sym)
	entries := make([]Entry, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Ticker != sym {
			entries = append(entries, e)
		}
	}
	return Plan{Entries: entries}
}

// Total is the sum of all percentages.
func (p Plan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Entries {
		total = total.Add(e.Percent)
	}
	return total
}

// Tickers lists the plan's tickers in order.
func (p Plan) Tickers() []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Ticker
	}
	return out
}
