package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/finbase/stock-ingestor/internal/ingestion"
	"github.com/finbase/stock-ingestor/pkg/logger"
	"github.com/finbase/stock-ingestor/pkg/metrics"
	"go.uber.org/zap"
)

// Fetch modes: daily pulls the full adjusted history window per symbol,
// quote pulls only the latest session snapshot.
const (
	ModeDaily = "daily"
	ModeQuote = "quote"
)

type Limiter interface {
	Wait(ctx context.Context) error
}

type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string) (*ingestion.Payload, error)
	FetchQuote(ctx context.Context, symbol string) (*ingestion.Payload, error)
}

type Normalizer interface {
	NormalizeDaily(symbol string, payload *ingestion.Payload) ([]domain.PriceRecord, error)
	NormalizeQuote(symbol string, payload *ingestion.Payload) ([]domain.PriceRecord, error)
}

type Upserter interface {
	Upsert(ctx context.Context, records []domain.PriceRecord) (int64, error)
}

// PipelineService drives one ingestion pass: for each configured symbol it
// sequences limiter, client, parser and writer, converts every failure into
// a per-symbol outcome and aggregates the outcomes into a RunSummary. One
// symbol's failure never aborts the run.
type PipelineService struct {
	limiter Limiter
	client  Fetcher
	parser  Normalizer
	writer  Upserter
	mode    string
}

func NewPipelineService(limiter Limiter, client Fetcher, parser Normalizer, writer Upserter, mode string) *PipelineService {
	if mode != ModeQuote {
		mode = ModeDaily
	}

	return &PipelineService{
		limiter: limiter,
		client:  client,
		parser:  parser,
		writer:  writer,
		mode:    mode,
	}
}

// Run processes the symbol list in order. The only errors it returns are
// ones that prevent the run itself from proceeding, like context
// cancellation; everything else lands in the summary.
func (s *PipelineService) Run(ctx context.Context, symbols []string) (*domain.RunSummary, error) {
	cleaned := cleanSymbols(symbols)
	if len(cleaned) == 0 {
		logger.Warn("no valid symbols configured")
		summary := domain.Summarize(nil)
		return &summary, nil
	}

	logger.Info("starting pipeline run",
		zap.Int("symbols", len(cleaned)),
		zap.String("mode", s.mode))

	outcomes := make([]domain.FetchOutcome, 0, len(cleaned))

	for i, symbol := range cleaned {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting on throttle: %w", err)
		}

		outcome := s.processSymbol(ctx, symbol)
		outcomes = append(outcomes, outcome)

		metrics.RecordSymbolProcessed(string(outcome.Status))
		logger.Info("symbol processed",
			zap.String("symbol", symbol),
			zap.String("status", string(outcome.Status)),
			zap.Int64("records", outcome.RecordsWritten),
			zap.Int("position", i+1),
			zap.Int("total", len(cleaned)))
	}

	summary := domain.Summarize(outcomes)
	metrics.PipelineRuns.WithLabelValues(string(summary.Status)).Inc()

	logger.Info("pipeline run finished",
		zap.String("status", string(summary.Status)),
		zap.Int64("records_total", summary.RecordsTotal),
		zap.Any("counts", summary.CountByStatus))

	return &summary, nil
}

func (s *PipelineService) processSymbol(ctx context.Context, symbol string) domain.FetchOutcome {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PipelineStage.WithLabelValues("symbol"))

	payload, err := s.fetch(ctx, symbol)
	if err != nil {
		status := domain.StatusFetchError
		var fetchErr *ingestion.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Kind == ingestion.KindRateLimited {
			status = domain.StatusRateLimited
		}
		return domain.FetchOutcome{Symbol: symbol, Status: status, Detail: err.Error()}
	}

	records, err := s.normalize(symbol, payload)
	if err != nil {
		return domain.FetchOutcome{Symbol: symbol, Status: domain.StatusParseError, Detail: err.Error()}
	}

	if len(records) == 0 {
		return domain.FetchOutcome{Symbol: symbol, Status: domain.StatusEmpty}
	}

	written, err := s.writer.Upsert(ctx, records)
	if err != nil {
		return domain.FetchOutcome{Symbol: symbol, Status: domain.StatusFetchError, Detail: err.Error()}
	}

	return domain.FetchOutcome{Symbol: symbol, Status: domain.StatusOK, RecordsWritten: written}
}

func (s *PipelineService) fetch(ctx context.Context, symbol string) (*ingestion.Payload, error) {
	if s.mode == ModeQuote {
		return s.client.FetchQuote(ctx, symbol)
	}
	return s.client.FetchDaily(ctx, symbol)
}

func (s *PipelineService) normalize(symbol string, payload *ingestion.Payload) ([]domain.PriceRecord, error) {
	if s.mode == ModeQuote {
		return s.parser.NormalizeQuote(symbol, payload)
	}
	return s.parser.NormalizeDaily(symbol, payload)
}

func cleanSymbols(symbols []string) []string {
	cleaned := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}
