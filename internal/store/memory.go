package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atmx/paper-ledger/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]model.WalletState
	ledger  map[string][]model.Transaction // ascending seq
	seen    map[string]bool                // transaction ids
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[string]model.WalletState),
		ledger:  make(map[string][]model.Transaction),
		seen:    make(map[string]bool),
	}
}

// cloneState copies holdings so callers never share the backing array.
func cloneState(s model.WalletState) model.WalletState {
	s.Holdings = append([]model.Holding(nil), s.Holdings...)
	return s
}

func (s *MemoryStore) CreateWallet(_ context.Context, state *model.WalletState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[state.ID]; ok {
		return fmt.Errorf("%w: %s", model.ErrWalletExists, state.ID)
	}
	s.wallets[state.ID] = cloneState(*state)
	return nil
}

func (s *MemoryStore) LoadWallet(_ context.Context, id string) (*model.WalletState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrWalletNotFound, id)
	}
	copy := cloneState(w)
	return &copy, nil
}

func (s *MemoryStore) ListWallets(_ context.Context) ([]model.WalletState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]model.WalletState, 0, len(s.wallets))
	for _, w := range s.wallets {
		wallets = append(wallets, cloneState(w))
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ID < wallets[j].ID })
	return wallets, nil
}

func (s *MemoryStore) Commit(_ context.Context, c Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.State.ID
	current, ok := s.wallets[id]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrWalletNotFound, id)
	}

	tx := c.Transaction
	if !s.seen[tx.ID] {
		s.seen[tx.ID] = true
		txs := s.ledger[id]
		i := sort.Search(len(txs), func(i int) bool { return txs[i].Seq > tx.Seq })
		txs = append(txs, model.Transaction{})
		copy(txs[i+1:], txs[i:])
		txs[i] = tx
		s.ledger[id] = txs
	}

	if c.State.Version > current.Version {
		s.wallets[id] = cloneState(c.State)
	}
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, walletID string, limit int) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := s.ledger[walletID]
	n := len(txs)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]model.Transaction, 0, n)
	for i := len(txs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, txs[i])
	}
	return result, nil
}
