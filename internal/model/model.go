// Package model defines the core domain types shared across the paper-trading
// ledger. All monetary values use the money package; never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/money"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// OrderType selects which price an order is estimated and filled at.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

func (o OrderType) Valid() bool { return o == OrderMarket || o == OrderLimit }

// AmountType tells whether TradeOrder.Amount is a share count or a currency amount.
type AmountType string

const (
	AmountShares   AmountType = "shares"
	AmountCurrency AmountType = "currency"
)

func (a AmountType) Valid() bool { return a == AmountShares || a == AmountCurrency }

// TxStatus is the outcome recorded for a processed order.
type TxStatus string

const (
	StatusFilled   TxStatus = "filled"
	StatusRejected TxStatus = "rejected"
)

// TradeOrder is a trade request that has not been applied yet.
// Amount is interpreted according to AmountType.
type TradeOrder struct {
	Ticker     string           `json:"ticker"`
	Side       Side             `json:"side"`
	OrderType  OrderType        `json:"order_type"`
	Amount     decimal.Decimal  `json:"amount"`
	AmountType AmountType       `json:"amount_type"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

// Estimate is the projected fill of an order at its effective price.
type Estimate struct {
	Ticker    string         `json:"ticker"`
	Side      Side           `json:"side"`
	OrderType OrderType      `json:"order_type"`
	Price     money.Money    `json:"price"` // effective price per share
	Shares    money.Quantity `json:"estimated_shares"`
	Total     money.Money    `json:"estimated_total"`
}

// Transaction is an immutable record of a processed order.
// Once created, these are never modified or deleted.
type Transaction struct {
	ID            string         `json:"id" db:"id"`
	WalletID      string         `json:"wallet_id" db:"wallet_id"`
	Seq           int64          `json:"seq" db:"seq"` // wallet-local, strictly increasing
	Ticker        string         `json:"ticker" db:"ticker"`
	Side          Side           `json:"side" db:"side"`
	OrderType     OrderType      `json:"order_type" db:"order_type"`
	Shares        money.Quantity `json:"shares" db:"shares"`
	PricePerShare money.Money    `json:"price_per_share" db:"price_per_share"`
	Total         money.Money    `json:"total" db:"total"`
	Status        TxStatus       `json:"status" db:"status"`
	Reason        string         `json:"reason,omitempty" db:"reason"` // rejection cause
	Timestamp     time.Time      `json:"timestamp" db:"timestamp"`
}

// Holding is the ledger-owned part of a position.
type Holding struct {
	Ticker    string         `json:"ticker"`
	Shares    money.Quantity `json:"shares"`
	CostBasis money.Money    `json:"cost_basis"` // total cost, not per share
}

// Position is a holding marked to an externally supplied price.
type Position struct {
	Ticker       string         `json:"ticker"`
	Shares       money.Quantity `json:"shares"`
	CostBasis    money.Money    `json:"cost_basis"`
	CurrentPrice money.Money    `json:"current_price"`
	Value        money.Money    `json:"value"`      // shares × currentPrice
	Gain         money.Money    `json:"gain"`       // value − costBasis
	DayChange    money.Money    `json:"day_change"` // shares × (price − prevClose)
	Priced       bool           `json:"priced"`     // false when no quote was available
}

// WalletSummary aggregates a wallet's cash and marked positions.
type WalletSummary struct {
	WalletID      string      `json:"wallet_id"`
	Currency      string      `json:"currency"`
	CashBalance   money.Money `json:"cash_balance"`
	TotalValue    money.Money `json:"total_value"` // cash + Σ position value
	TotalGainLoss money.Money `json:"total_gain_loss"`
	DayChange     money.Money `json:"day_change"`
}

// WalletState is the persisted form of a wallet. Version increases by one
// with every processed order.
type WalletState struct {
	ID        string      `json:"id"`
	Currency  string      `json:"currency"`
	Cash      money.Money `json:"cash"`
	Holdings  []Holding   `json:"holdings"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
}

// Quote is the externally supplied price of a ticker.
type Quote struct {
	Ticker    string      `json:"ticker"`
	Price     money.Money `json:"price"`
	PrevClose money.Money `json:"prev_close"`
	UpdatedAt time.Time   `json:"updated_at"`
}
