package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ReplaceConfig names the rows owned by one key that ReplaceRows swaps out.
type ReplaceConfig struct {
	Table     string
	KeyColumn string
	Key       any
	Columns   []string
}

// WithTx runs fn inside a transaction on pool. The transaction commits only
// when fn returns nil; otherwise it is rolled back.
func WithTx(ctx context.Context, pool Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "db: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "db: commit")
	}
	return nil
}

// ReplaceRows deletes every row of cfg.Table whose cfg.KeyColumn equals
// cfg.Key and copies rows in, both inside tx.
//  1. DELETE FROM table WHERE key = $1
//  2. COPY rows into table
func ReplaceRows(ctx context.Context, tx pgx.Tx, cfg ReplaceConfig, rows [][]any) (int64, error) {
	if cfg.Table == "" || cfg.KeyColumn == "" {
		return 0, eris.New("db: replace: table and key column are required")
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: replace: no columns specified")
	}

	table := pgx.Identifier{cfg.Table}.Sanitize()
	key := pgx.Identifier{cfg.KeyColumn}.Sanitize()
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, key), cfg.Key); err != nil {
		return 0, eris.Wrapf(err, "db: replace: delete from %s", cfg.Table)
	}

	if len(rows) == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{cfg.Table}, cfg.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", cfg.Table)
	}
	return n, nil
}
