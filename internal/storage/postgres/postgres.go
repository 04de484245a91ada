// Package postgres implements the domain repositories and the order
// placement transaction on top of PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/depot-store/db"
	"github.com/xenking/depot-store/internal/domain/order"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

var _ order.TxRunner = (*Store)(nil)

// Store runs order placement transactions at serializable isolation.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside one serializable transaction. Serialization failures
// and deadlocks abort the transaction and surface as order.ErrConflict so
// the caller can retry the whole unit of work.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool,
		pgx.TxOptions{IsoLevel: pgx.Serializable},
		func(tx pgx.Tx) error {
			return fn(ctx, &orderTx{tx: tx})
		},
	)
	if isConflict(err) {
		return errors.Wrap(order.ErrConflict, err.Error())
	}
	return err
}

// isConflict reports whether err is a transient transaction abort:
// SQLSTATE 40001 (serialization_failure) or 40P01 (deadlock_detected).
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
