package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no row exists for the requested symbol.
var ErrNotFound = errors.New("price not found")

const selectPriceColumns = `
	symbol, trading_day, open, high, low, close,
	adjusted_close, volume, current_price, last_updated
`

// LatestPrice returns the most recent observation for a symbol.
func (db *DB) LatestPrice(ctx context.Context, symbol string) (*domain.PriceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM stock_prices
		WHERE symbol = $1
		ORDER BY trading_day DESC
		LIMIT 1
	`, selectPriceColumns)

	row := db.pool.QueryRow(ctx, query, symbol)

	record, err := scanPrice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying latest price for %s: %w", symbol, err)
	}

	return record, nil
}

// PriceHistory returns observations for a symbol in a date range, oldest
// first. Nil bounds are open-ended.
func (db *DB) PriceHistory(ctx context.Context, symbol string, startDate, endDate *time.Time) ([]domain.PriceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM stock_prices
		WHERE symbol = $1
	`, selectPriceColumns)

	args := []interface{}{symbol}

	if startDate != nil {
		args = append(args, *startDate)
		query += fmt.Sprintf(" AND trading_day >= $%d", len(args))
	}

	if endDate != nil {
		args = append(args, *endDate)
		query += fmt.Sprintf(" AND trading_day <= $%d", len(args))
	}

	query += " ORDER BY trading_day ASC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var history []domain.PriceRecord
	for rows.Next() {
		record, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		history = append(history, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}

	return history, nil
}

func scanPrice(row pgx.Row) (*domain.PriceRecord, error) {
	var record domain.PriceRecord

	err := row.Scan(
		&record.Symbol,
		&record.TradingDay,
		&record.Open,
		&record.High,
		&record.Low,
		&record.Close,
		&record.AdjustedClose,
		&record.Volume,
		&record.CurrentPrice,
		&record.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
