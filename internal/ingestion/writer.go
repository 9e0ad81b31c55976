package ingestion

import (
	"context"
	"time"

	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/finbase/stock-ingestor/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upsertPriceSQL = `
	INSERT INTO stock_prices (
		symbol, trading_day, open, high, low, close,
		adjusted_close, volume, current_price, last_updated
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (symbol, trading_day)
	DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		adjusted_close = EXCLUDED.adjusted_close,
		volume = EXCLUDED.volume,
		current_price = EXCLUDED.current_price,
		last_updated = EXCLUDED.last_updated
`

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Writer persists normalized records with last-write-wins semantics: on a
// (symbol, trading_day) conflict every column is replaced, including NULLs
// overwriting previously populated values.
type Writer struct {
	pool txBeginner
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// Upsert writes all records of one symbol fetch in a single transaction and
// returns the number of rows affected. On failure the transaction rolls back
// and a WriteError is returned.
func (w *Writer) Upsert(ctx context.Context, records []domain.PriceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PipelineStage.WithLabelValues("upsert"))

	symbol := records[0].Symbol
	now := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		metrics.RecordDatabaseQuery("upsert_prices", "error", timer.Elapsed().Seconds())
		return 0, &WriteError{Kind: "db", Symbol: symbol, Err: err}
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		lastUpdated := r.LastUpdated
		if lastUpdated.IsZero() {
			lastUpdated = now
		}

		batch.Queue(upsertPriceSQL,
			r.Symbol,
			r.TradingDay,
			r.Open,
			r.High,
			r.Low,
			r.Close,
			r.AdjustedClose,
			r.Volume,
			r.CurrentPrice,
			lastUpdated,
		)
	}

	results := tx.SendBatch(ctx, batch)

	var affected int64
	for range records {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			metrics.RecordDatabaseQuery("upsert_prices", "error", timer.Elapsed().Seconds())
			return 0, &WriteError{Kind: "db", Symbol: symbol, Err: err}
		}
		affected += tag.RowsAffected()
	}

	if err := results.Close(); err != nil {
		metrics.RecordDatabaseQuery("upsert_prices", "error", timer.Elapsed().Seconds())
		return 0, &WriteError{Kind: "db", Symbol: symbol, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDatabaseQuery("upsert_prices", "error", timer.Elapsed().Seconds())
		return 0, &WriteError{Kind: "db", Symbol: symbol, Err: err}
	}

	metrics.RecordDatabaseQuery("upsert_prices", "success", timer.Elapsed().Seconds())
	metrics.RecordsUpserted.Add(float64(affected))

	return affected, nil
}
