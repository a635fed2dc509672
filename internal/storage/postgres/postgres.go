// Package postgres implements the ledger store and catalog repositories on
// PostgreSQL via pgx.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/token-register/db"
)

// NewPool creates a pgxpool.Pool from a connection URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}

	return pool, nil
}

// RunMigrations creates missing tables and upgrades order_items to carry
// snapshot columns. Both steps are safe to re-run.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, lg *zap.Logger) error {
	if err := EnsureSchema(ctx, pool); err != nil {
		return err
	}
	if err := MigrateSnapshotColumns(ctx, pool, lg); err != nil {
		return err
	}
	return nil
}

// EnsureSchema executes the embedded DDL. Every statement is IF NOT EXISTS.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "ensure schema")
	}
	return nil
}
