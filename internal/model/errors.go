package model

import (
	"errors"
	"fmt"

	"github.com/atmx/paper-ledger/internal/money"
)

// Ledger error taxonomy. Every one of these is user-facing and recoverable.
var (
	ErrInvalidAmount      = errors.New("ledger: amount must be positive")
	ErrInvalidPrice       = errors.New("ledger: price must be positive")
	ErrZeroQuantity       = errors.New("ledger: order resolves to zero shares")
	ErrInsufficientFunds  = errors.New("ledger: insufficient funds")
	ErrInsufficientShares = errors.New("ledger: insufficient shares")
	ErrIncompletePlan     = errors.New("ledger: allocation plan does not sum to 100%")
	ErrUnknownTicker      = errors.New("ledger: unknown ticker")
	ErrInvalidTicker      = errors.New("ledger: invalid ticker")
	ErrInvalidPercent     = errors.New("ledger: percentage must be between 0 and 100")
	ErrInvalidOrder       = errors.New("ledger: invalid order")
	ErrWalletNotFound     = errors.New("ledger: wallet not found")
	ErrWalletExists       = errors.New("ledger: wallet already exists")
)

// InsufficientFundsError reports a buy that costs more than the cash balance.
type InsufficientFundsError struct {
	Available money.Money
	Required  money.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: available %s, required %s", ErrInsufficientFunds, e.Available, e.Required)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// InsufficientSharesError reports a sell of more shares than are held.
type InsufficientSharesError struct {
	Owned    money.Quantity
	Required money.Quantity
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("%s: owned %s, required %s", ErrInsufficientShares, e.Owned, e.Required)
}

func (e *InsufficientSharesError) Is(target error) bool { return target == ErrInsufficientShares }

// Reason returns the short machine name of a taxonomy error, used for
// rejected transaction records and metric labels.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrZeroQuantity):
		return "zero_quantity"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrIncompletePlan):
		return "incomplete_plan"
	case errors.Is(err, ErrUnknownTicker):
		return "unknown_ticker"
	case errors.Is(err, ErrInvalidTicker):
		return "invalid_ticker"
	case errors.Is(err, ErrInvalidOrder):
		return "invalid_order"
	default:
		return "internal"
	}
}
