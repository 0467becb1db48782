// Package store defines the persistence interface for wallets and their
// transaction ledgers. Implementations include PostgreSQL (source of truth),
// Redis (read-through cache) and in-memory (for testing).
package store

import (
	"context"

	"github.com/atmx/paper-ledger/internal/model"
)

// Commit is the durable form of one processed order: the wallet state after
// the order and the transaction it produced. Transaction.Seq equals
// State.Version.
type Commit struct {
	State       model.WalletState
	Transaction model.Transaction
}

// Store is the persistence interface. Commits are written outside the
// wallet lock and may arrive out of order, so implementations apply a
// Commit's transaction and state atomically and keep the stored state only
// if its version is newer.
type Store interface {
	// --- Wallets ---

	// CreateWallet persists a new wallet. Fails with model.ErrWalletExists.
	CreateWallet(ctx context.Context, state *model.WalletState) error

	// LoadWallet returns a wallet's latest state or model.ErrWalletNotFound.
	LoadWallet(ctx context.Context, id string) (*model.WalletState, error)

	// ListWallets returns every wallet ordered by id.
	ListWallets(ctx context.Context) ([]model.WalletState, error)

	// --- Immutable ledger ---

	// Commit appends the transaction and stores the state if newer.
	Commit(ctx context.Context, c Commit) error

	// ListTransactions returns a wallet's transactions newest first.
	// A limit ≤ 0 returns all of them.
	ListTransactions(ctx context.Context, walletID string, limit int) ([]model.Transaction, error)
}
