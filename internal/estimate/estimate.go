// Package estimate converts a trade order into a projected share quantity and
// total cost. It is a pure function of its inputs and takes no locks, so
// callers may re-run it on every input change.
package estimate

import (
	"fmt"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// EffectivePrice returns the limit price for limit orders and currentPrice
// otherwise. Fails with ErrInvalidPrice when that price is not positive at
// cent resolution.
func EffectivePrice(order model.TradeOrder, currentPrice money.Money) (money.Money, error) {
	price := currentPrice
	if order.OrderType == model.OrderLimit {
		if order.LimitPrice == nil {
			return money.Zero, fmt.Errorf("%w: limit order without limit price", model.ErrInvalidPrice)
		}
		price = money.New(*order.LimitPrice)
	}
	if !price.IsPositive() {
		return money.Zero, fmt.Errorf("%w: got %s", model.ErrInvalidPrice, price)
	}
	return price, nil
}

// Estimate projects the fill of order at its effective price.
//
//   - currency amounts buy or sell floor(amount / price) shares at 4 decimals
//     and the total is the amount itself;
//   - share amounts cost round(shares × price) at 2 decimals.
func Estimate(order model.TradeOrder, currentPrice money.Money) (model.Estimate, error) {
	if !order.Side.Valid() {
		return model.Estimate{}, fmt.Errorf("%w: side %q", model.ErrInvalidOrder, order.Side)
	}
	if !order.OrderType.Valid() {
		return model.Estimate{}, fmt.Errorf("%w: order type %q", model.ErrInvalidOrder, order.OrderType)
	}
	if !order.AmountType.Valid() {
		return model.Estimate{}, fmt.Errorf("%w: amount type %q", model.ErrInvalidOrder, order.AmountType)
	}
	if !order.Amount.IsPositive() {
		return model.Estimate{}, fmt.Errorf("%w: got %s", model.ErrInvalidAmount, order.Amount)
	}

	price, err := EffectivePrice(order, currentPrice)
	if err != nil {
		return model.Estimate{}, err
	}

	est := model.Estimate{
		Ticker:    order.Ticker,
		Side:      order.Side,
		OrderType: order.OrderType,
		Price:     price,
	}

	switch order.AmountType {
	case model.AmountCurrency:
		total := money.New(order.Amount)
		if !total.IsPositive() {
			return model.Estimate{}, fmt.Errorf("%w: %s rounds to zero", model.ErrInvalidAmount, order.Amount)
		}
		est.Total = total
		est.Shares = total.SharesFor(price)
	case model.AmountShares:
		est.Shares = money.Floor(order.Amount)
		est.Total = price.Mul(est.Shares)
	}

	return est, nil
}
