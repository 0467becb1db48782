package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/paper-ledger/internal/metrics"
	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

// Manager owns the live wallets and restores them from the store on first
// access.
type Manager struct {
	mu      sync.RWMutex
	wallets map[string]*Wallet
	opts    Options

	DefaultCurrency string
}

func NewManager(opts Options) *Manager {
	return &Manager{
		wallets:         make(map[string]*Wallet),
		opts:            opts,
		DefaultCurrency: "USD",
	}
}

// Create opens a wallet with the given starting cash. An empty id gets a
// generated one, an empty currency the manager default.
func (m *Manager) Create(ctx context.Context, id, currency string, cash money.Money) (*Wallet, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if currency == "" {
		currency = m.DefaultCurrency
	}
	if !money.IsCurrency(currency) {
		return nil, fmt.Errorf("%w: unknown currency %q", model.ErrInvalidOrder, currency)
	}
	if cash.IsNegative() {
		return nil, fmt.Errorf("%w: starting cash %s", model.ErrInvalidAmount, cash)
	}

	state := model.WalletState{
		ID:        id,
		Currency:  currency,
		Cash:      cash,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[id]; ok {
		return nil, model.ErrWalletExists
	}
	if m.opts.Store != nil {
		if err := m.opts.Store.CreateWallet(ctx, &state); err != nil {
			return nil, err
		}
	}

	w := newWallet(state, nil, m.opts)
	m.wallets[id] = w
	metrics.ActiveWallets.Set(float64(len(m.wallets)))
	slog.Info("wallet created", "wallet", id, "currency", currency, "cash", cash.String())
	return w, nil
}

// Get returns a live wallet, loading it and its transactions from the store
// if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Wallet, error) {
	m.mu.RLock()
	w, ok := m.wallets[id]
	m.mu.RUnlock()
	if ok {
		return w, nil
	}
	if m.opts.Store == nil {
		return nil, model.ErrWalletNotFound
	}

	state, err := m.opts.Store.LoadWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	txs, err := m.opts.Store.ListTransactions(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[id]; ok {
		return w, nil
	}
	w = newWallet(*state, txs, m.opts)
	m.wallets[id] = w
	metrics.ActiveWallets.Set(float64(len(m.wallets)))
	slog.Info("wallet restored", "wallet", id, "version", state.Version, "transactions", len(txs))
	return w, nil
}

// List returns the state of every wallet, ordered by id. Wallets in the
// store that are not live yet are included.
func (m *Manager) List(ctx context.Context) ([]model.WalletState, error) {
	byID := make(map[string]model.WalletState)
	if m.opts.Store != nil {
		stored, err := m.opts.Store.ListWallets(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range stored {
			byID[s.ID] = s
		}
	}

	m.mu.RLock()
	for id, w := range m.wallets {
		byID[id] = w.Snapshot()
	}
	m.mu.RUnlock()

	out := make([]model.WalletState, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
