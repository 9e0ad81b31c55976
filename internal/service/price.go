package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/finbase/stock-ingestor/internal/storage/cache"
	"github.com/finbase/stock-ingestor/internal/storage/postgres"
	"github.com/finbase/stock-ingestor/pkg/logger"
	"github.com/finbase/stock-ingestor/pkg/metrics"
	"go.uber.org/zap"
)

// PriceService serves the read side of the destination table, with an
// optional Redis cache in front of the latest-price lookup.
type PriceService struct {
	db    *postgres.DB
	cache *cache.RedisCache
}

func NewPriceService(db *postgres.DB, redisCache *cache.RedisCache) *PriceService {
	return &PriceService{
		db:    db,
		cache: redisCache,
	}
}

func (s *PriceService) Latest(ctx context.Context, symbol string) (*domain.PriceRecord, error) {
	cacheKey := fmt.Sprintf("price:%s:latest", symbol)

	if s.cache != nil {
		var cached domain.PriceRecord
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			metrics.RecordCacheHit()
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("cache lookup failed", zap.String("symbol", symbol), zap.Error(err))
		}
		metrics.RecordCacheMiss()
	}

	timer := metrics.NewTimer()
	record, err := s.db.LatestPrice(ctx, symbol)
	if err != nil {
		if !errors.Is(err, postgres.ErrNotFound) {
			metrics.RecordDatabaseQuery("latest_price", "error", timer.Elapsed().Seconds())
		}
		return nil, err
	}
	metrics.RecordDatabaseQuery("latest_price", "success", timer.Elapsed().Seconds())

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, record); err != nil {
			logger.Warn("cache store failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	return record, nil
}

func (s *PriceService) History(ctx context.Context, symbol string, startDate, endDate *time.Time) ([]domain.PriceRecord, error) {
	timer := metrics.NewTimer()

	history, err := s.db.PriceHistory(ctx, symbol, startDate, endDate)
	if err != nil {
		metrics.RecordDatabaseQuery("price_history", "error", timer.Elapsed().Seconds())
		return nil, err
	}

	metrics.RecordDatabaseQuery("price_history", "success", timer.Elapsed().Seconds())
	logger.Debug("history retrieved",
		zap.String("symbol", symbol),
		zap.Int("records", len(history)))

	return history, nil
}

// Invalidate drops cached entries for the symbols a pipeline run touched.
func (s *PriceService) Invalidate(ctx context.Context, symbols []string) {
	if s.cache == nil {
		return
	}
	for _, symbol := range symbols {
		if err := s.cache.InvalidateSymbol(ctx, symbol); err != nil {
			logger.Warn("cache invalidation failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
