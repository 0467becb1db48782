// Package validate checks an estimated order against a wallet snapshot.
//
// A Valid result is advisory: the wallet re-runs Check against its committed
// state inside the same critical section that applies the trade.
package validate

import (
	"fmt"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// Snapshot is the part of a wallet an order is validated against.
// Shares is the held quantity of the order's ticker (zero if none).
type Snapshot struct {
	Cash   money.Money
	Shares money.Quantity
}

// Valid is an estimate that passed validation. It is a value type; copies
// cannot alter the original.
type Valid struct {
	est model.Estimate
}

func (v Valid) Estimate() model.Estimate { return v.est }
func (v Valid) Ticker() string { return v.est.Ticker }
func (v Valid) Side() model.Side { return v.est.Side }
func (v Valid) Shares() money.Quantity { return v.est.Shares }
func (v Valid) Total() money.Money { return v.est.Total }
func (v Valid) Price() money.Money { return v.est.Price }

// Check validates est against snap.
//
//   - any order for zero shares fails with ErrZeroQuantity;
//   - a buy needs Total ≤ Cash, else *model.InsufficientFundsError;
//   - a sell needs Shares ≤ held shares, else *model.InsufficientSharesError.
func Check(est model.Estimate, snap Snapshot) (Valid, error) {
	if !est.Shares.IsPositive() {
		return Valid{}, fmt.Errorf("%s %s: %w", est.Side, est.Ticker, model.ErrZeroQuantity)
	}

	switch est.Side {
	case model.SideBuy:
		if est.Total.GreaterThan(snap.Cash) {
			return Valid{}, &model.InsufficientFundsError{Available: snap.Cash, Required: est.Total}
		}
	case model.SideSell:
		if est.Shares.GreaterThan(snap.Shares) {
			return Valid{}, &model.InsufficientSharesError{Owned: snap.Shares, Required: est.Shares}
		}
	default:
		return Valid{}, fmt.Errorf("%w: side %q", model.ErrInvalidOrder, est.Side)
	}

	return Valid{est: est}, nil
}
