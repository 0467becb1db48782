// Package pricing holds the externally supplied quotes the ledger marks
// positions against. The ledger only reads quotes; a price feed writes them.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
	"github.com/atmx/paper-ledger/internal/ticker"
)

// Quoter returns the latest quote for a ticker, or model.ErrUnknownTicker.
type Quoter interface {
	Quote(ctx context.Context, ticker string) (model.Quote, error)
}

// Feed is the write side of a quote source.
type Feed interface {
	Quoter

	// SetPrice records a new price. The first price of a ticker also becomes
	// its previous close.
	SetPrice(ctx context.Context, ticker string, price money.Money) (model.Quote, error)

	// RollClose makes every current price the previous close and returns the
	// number of quotes rolled.
	RollClose(ctx context.Context) (int, error)

	// List returns all quotes ordered by ticker.
	List(ctx context.Context) ([]model.Quote, error)
}

// Book is an in-memory Feed. Safe for concurrent use.
type Book struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
	now    func() time.Time
}

// NewBook creates an empty in-memory quote book.
func NewBook() *Book {
	return &Book{
		quotes: make(map[string]model.Quote),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b *Book) Quote(_ context.Context, sym string) (model.Quote, error) {
	sym = ticker.Normalize(sym)

	b.mu.RLock()
	defer b.mu.RUnlock()

	q, ok := b.quotes[sym]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", model.ErrUnknownTicker, sym)
	}
	return q, nil
}

func (b *Book) SetPrice(_ context.Context, sym string, price money.Money) (model.Quote, error) {
	sym, err := ticker.Parse(sym)
	if err != nil {
		return model.Quote{}, err
	}
	if !price.IsPositive() {
		return model.Quote{}, fmt.Errorf("%w: %s %s", model.ErrInvalidPrice, sym, price)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q := nextQuote(b.quotes[sym], sym, price, b.now())
	b.quotes[sym] = q
	return q, nil
}

func (b *Book) RollClose(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sym, q := range b.quotes {
		q.PrevClose = q.Price
		b.quotes[sym] = q
	}
	return len(b.quotes), nil
}

func (b *Book) List(_ context.Context) ([]model.Quote, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	quotes := make([]model.Quote, 0, len(b.quotes))
	for _, q := range b.quotes {
		quotes = append(quotes, q)
	}
	sortQuotes(quotes)
	return quotes, nil
}

// nextQuote applies a new price to prev, which is the zero Quote for a
// ticker seen for the first time.
func nextQuote(prev model.Quote, sym string, price money.Money, at time.Time) model.Quote {
	prevClose := prev.PrevClose
	if prev.Ticker == "" {
		prevClose = price
	}
	return model.Quote{
		Ticker:    sym,
		Price:     price,
		PrevClose: prevClose,
		UpdatedAt: at,
	}
}

func sortQuotes(quotes []model.Quote) {
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Ticker < quotes[j].Ticker })
}
