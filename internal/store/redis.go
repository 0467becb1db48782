package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/paper-ledger/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for wallet states. Writes go to the primary store and invalidate the
// cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateWallet(ctx context.Context, w *model.WalletState) error {
	if err := s.primary.CreateWallet(ctx, w); err != nil {
		return err
	}
	s.rdb.Del(ctx, walletKey(w.ID))
	return nil
}

func (s *CachedStore) Commit(ctx context.Context, c Commit) error {
	if err := s.primary.Commit(ctx, c); err != nil {
		return err
	}
	// Invalidate; next read re-populates from the primary, which only ever
	// holds the newest version.
	s.rdb.Del(ctx, walletKey(c.State.ID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) LoadWallet(ctx context.Context, id string) (*model.WalletState, error) {
	data, err := s.rdb.Get(ctx, walletKey(id)).Bytes()
	if err == nil {
		var w model.WalletState
		if json.Unmarshal(data, &w) == nil {
			return &w, nil
		}
	}

	w, err := s.primary.LoadWallet(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(w); err == nil {
		s.rdb.Set(ctx, walletKey(id), data, s.ttl)
	}
	return w, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListWallets(ctx context.Context) ([]model.WalletState, error) {
	return s.primary.ListWallets(ctx)
}

func (s *CachedStore) ListTransactions(ctx context.Context, walletID string, limit int) ([]model.Transaction, error) {
	return s.primary.ListTransactions(ctx, walletID, limit)
}

func walletKey(id string) string { return fmt.Sprintf("wallet:%s", id) }
