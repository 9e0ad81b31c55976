package postgres

import (
	"context"
	"fmt"
)

// Older installs predate the current_price and last_updated columns, so the
// schema is ensured in three idempotent steps: base table, added columns,
// then indexes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stock_prices (
		symbol TEXT NOT NULL,
		trading_day DATE NOT NULL,
		open NUMERIC,
		high NUMERIC,
		low NUMERIC,
		close NUMERIC,
		adjusted_close NUMERIC,
		volume BIGINT,
		PRIMARY KEY (symbol, trading_day)
	)`,
	`ALTER TABLE stock_prices
		ADD COLUMN IF NOT EXISTS current_price NUMERIC`,
	`ALTER TABLE stock_prices
		ADD COLUMN IF NOT EXISTS last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP`,
	`CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol ON stock_prices(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_prices_last_updated ON stock_prices(last_updated)`,
}

// EnsureSchema creates or migrates the stock_prices table. Safe to run on
// every startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}
