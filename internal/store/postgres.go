package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

//go:embed schema.sql
var schema string

// Connect opens a pool with NUMERIC columns mapped to shopspring decimals
// and verifies connectivity.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store. The pool must come
// from Connect so decimals are registered.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w *model.WalletState) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallets (id, currency, cash, version, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.Currency, w.Cash.Decimal(), w.Version, w.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", model.ErrWalletExists, w.ID)
	}
	return err
}

func (s *PostgresStore) LoadWallet(ctx context.Context, id string) (*model.WalletState, error) {
	var w model.WalletState
	var cash decimal.Decimal

	err := s.pool.QueryRow(ctx,
		`SELECT id, currency, cash, version, created_at FROM wallets WHERE id = $1`, id).
		Scan(&w.ID, &w.Currency, &cash, &w.Version, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrWalletNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet %s: %w", id, err)
	}
	w.Cash = money.New(cash)

	holdings, err := s.holdings(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Holdings = holdings
	return &w, nil
}

func (s *PostgresStore) holdings(ctx context.Context, walletID string) ([]model.Holding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ticker, shares, cost_basis FROM holdings
		 WHERE wallet_id = $1 ORDER BY ticker`, walletID)
	if err != nil {
		return nil, fmt.Errorf("load holdings %s: %w", walletID, err)
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var shares, costBasis decimal.Decimal
		if err := rows.Scan(&h.Ticker, &shares, &costBasis); err != nil {
			return nil, err
		}
		h.Shares = money.Q(shares)
		h.CostBasis = money.New(costBasis)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *PostgresStore) ListWallets(ctx context.Context) ([]model.WalletState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM wallets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	wallets := make([]model.WalletState, 0, len(ids))
	for _, id := range ids {
		w, err := s.LoadWallet(ctx, id)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, nil
}

// Commit writes the transaction and, when the state is newer than the stored
// one, the cash, version and holdings, all in one database transaction.
func (s *PostgresStore) Commit(ctx context.Context, c Commit) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		e := c.Transaction
		if _, err := tx.Exec(ctx,
			`INSERT INTO transactions (id, wallet_id, seq, ticker, side, order_type,
			                           shares, price_per_share, total, status, reason, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (id) DO NOTHING`,
			e.ID, e.WalletID, e.Seq, e.Ticker, string(e.Side), string(e.OrderType),
			e.Shares.Decimal(), e.PricePerShare.Decimal(), e.Total.Decimal(),
			string(e.Status), e.Reason, e.Timestamp,
		); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		w := c.State
		tag, err := tx.Exec(ctx,
			`UPDATE wallets SET cash = $2, version = $3
			 WHERE id = $1 AND version < $3`,
			w.ID, w.Cash.Decimal(), w.Version,
		)
		if err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil // a newer state is already stored
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM holdings WHERE wallet_id = $1`, w.ID)
		for _, h := range w.Holdings {
			batch.Queue(
				`INSERT INTO holdings (wallet_id, ticker, shares, cost_basis) VALUES ($1, $2, $3, $4)`,
				w.ID, h.Ticker, h.Shares.Decimal(), h.CostBasis.Decimal(),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("replace holdings: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ListTransactions(ctx context.Context, walletID string, limit int) ([]model.Transaction, error) {
	query := `SELECT id, wallet_id, seq, ticker, side, order_type,
	                 shares, price_per_share, total, status, reason, timestamp
	          FROM transactions WHERE wallet_id = $1 ORDER BY seq DESC`
	args := []any{walletID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// pgxRows is the subset of pgx.Rows read by scanTransactions.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		var e model.Transaction
		var side, orderType, status string
		var shares, price, total decimal.Decimal

		if err := rows.Scan(&e.ID, &e.WalletID, &e.Seq, &e.Ticker, &side, &orderType,
			&shares, &price, &total, &status, &e.Reason, &e.Timestamp); err != nil {
			return nil, err
		}

		e.Side = model.Side(side)
		e.OrderType = model.OrderType(orderType)
		e.Status = model.TxStatus(status)
		e.Shares = money.Q(shares)
		e.PricePerShare = money.New(price)
		e.Total = money.New(total)
		txs = append(txs, e)
	}
	return txs, rows.Err()
}
