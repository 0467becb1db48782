package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// DefaultTolerance is the distance from 100% within which a plan is complete.
var DefaultTolerance = decimal.RequireFromString("0.1")

// Checker decides plan completeness. The zero value uses DefaultTolerance
// with a strict comparison.
type Checker struct {
	// Tolerance overrides DefaultTolerance when set. Zero with Inclusive
	// requires a total of exactly 100.
	Tolerance *decimal.Decimal
	// Inclusive accepts a total exactly Tolerance away from 100.
	Inclusive bool
}

// WithTolerance returns a copy of c using tol.
func (c Checker) WithTolerance(tol decimal.Decimal) Checker {
	c.Tolerance = &tol
	return c
}

func (c Checker) tolerance() decimal.Decimal {
	if c.Tolerance == nil {
		return DefaultTolerance
	}
	return *c.Tolerance
}

// IsComplete reports whether |Σ pct − 100| is below the tolerance.
func (c Checker) IsComplete(p Plan) bool {
	if len(p.Entries) == 0 {
		return false
	}
	gap := p.Total().Sub(hundred).Abs()
	if c.Inclusive {
		return gap.LessThanOrEqual(c.tolerance())
	}
	return gap.LessThan(c.tolerance())
}

// Leg is one asset's share of a derived plan.
type Leg struct {
	Ticker  string          `json:"ticker"`
	Percent decimal.Decimal `json:"percent"`
	Amount  money.Money     `json:"dollar_amount"`
	Price   money.Money     `json:"price"`
	Shares  money.Quantity  `json:"shares"`
	Priced  bool            `json:"priced"`
}

// Derivation is the per-asset breakdown of an investment amount.
type Derivation struct {
	Investment money.Money     `json:"investment"`
	Total      decimal.Decimal `json:"total_percent"`
	Complete   bool            `json:"complete"`
	Legs       []Leg           `json:"legs"`
}

// Cost is the sum of each leg's shares at its price.
func (d Derivation) Cost() money.Money {
	cost := money.Zero
	for _, l := range d.Legs {
		cost = cost.Add(l.Price.Mul(l.Shares))
	}
	return cost
}

// Preview derives legs without requiring a complete plan. Tickers missing
// from prices get a dollar amount but zero shares. A non-positive investment
// fails with ErrInvalidAmount.
func (c Checker) Preview(p Plan, investment money.Money, prices map[string]money.Money) (Derivation, error) {
	if !investment.IsPositive() {
		return Derivation{}, fmt.Errorf("%w: investment %s", model.ErrInvalidAmount, investment)
	}
	legs := make([]Leg, len(p.Entries))
	for i, e := range p.Entries {
		amount := investment.Percent(e.Percent)
		price, ok := prices[e.Ticker]
		legs[i] = Leg{
			Ticker:  e.Ticker,
			Percent: e.Percent,
			Amount:  amount,
			Price:   price,
			Shares:  amount.SharesFor(price),
			Priced:  ok && price.IsPositive(),
		}
	}
	return Derivation{
		Investment: investment,
		Total:      p.Total(),
		Complete:   c.IsComplete(p),
		Legs:       legs,
	}, nil
}

// Derive derives legs for execution. It fails with ErrInvalidAmount for a
// non-positive investment, ErrIncompletePlan when the plan is not complete
// and ErrUnknownTicker when any ticker has no positive price.
func (c Checker) Derive(p Plan, investment money.Money, prices map[string]money.Money) (Derivation, error) {
	if !investment.IsPositive() {
		return Derivation{}, fmt.Errorf("%w: investment %s", model.ErrInvalidAmount, investment)
	}
	if !c.IsComplete(p) {
		return Derivation{}, fmt.Errorf("%w: total %s%%", model.ErrIncompletePlan, p.Total())
	}
	d, err := c.Preview(p, investment, prices)
	if err != nil {
		return Derivation{}, err
	}
	for _, l := range d.Legs {
		if !l.Priced {
			return Derivation{}, fmt.Errorf("%w: no price for %s", model.ErrUnknownTicker, l.Ticker)
		}
	}
	return d, nil
}
