package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/finbase/stock-ingestor/internal/config"
	"github.com/finbase/stock-ingestor/internal/service"
	"github.com/finbase/stock-ingestor/internal/storage/cache"
	"github.com/finbase/stock-ingestor/internal/storage/postgres"
	"github.com/finbase/stock-ingestor/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	cfg             *config.Config
	db              *postgres.DB
	cacheService    *cache.RedisCache
	priceService    *service.PriceService
	pipelineService *service.PipelineService
}

func NewHandler(
	cfg *config.Config,
	db *postgres.DB,
	cacheService *cache.RedisCache,
	priceService *service.PriceService,
	pipelineService *service.PipelineService,
) *Handler {
	return &Handler{
		cfg:             cfg,
		db:              db,
		cacheService:    cacheService,
		priceService:    priceService,
		pipelineService: pipelineService,
	}
}

func (h *Handler) GetLatestPrice(c *fiber.Ctx) error {
	symbol := c.Params("symbol")
	if symbol == "" {
		return badRequest(c, "symbol is required")
	}

	record, err := h.priceService.Latest(c.Context(), symbol)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:     fmt.Sprintf("no data for symbol %s", symbol),
				Code:      fiber.StatusNotFound,
				RequestID: requestID(c),
				Timestamp: time.Now(),
			})
		}

		logger.Error("latest price lookup failed",
			zap.String("symbol", symbol),
			zap.Error(err))

		return internalError(c, "failed to fetch latest price")
	}

	return c.JSON(toPriceResponse(*record))
}

func (h *Handler) GetPriceHistory(c *fiber.Ctx) error {
	symbol := c.Params("symbol")
	if symbol == "" {
		return badRequest(c, "symbol is required")
	}

	startDate, err := dateQuery(c, "start_date")
	if err != nil {
		return badRequest(c, "invalid start_date (use YYYY-MM-DD)")
	}

	endDate, err := dateQuery(c, "end_date")
	if err != nil {
		return badRequest(c, "invalid end_date (use YYYY-MM-DD)")
	}

	history, err := h.priceService.History(c.Context(), symbol, startDate, endDate)
	if err != nil {
		logger.Error("history lookup failed",
			zap.String("symbol", symbol),
			zap.Error(err))

		return internalError(c, "failed to fetch history")
	}

	response := HistoryResponse{
		Symbol: symbol,
		Count:  len(history),
		Prices: make([]PriceResponse, 0, len(history)),
	}
	for _, record := range history {
		response.Prices = append(response.Prices, toPriceResponse(record))
	}

	return c.JSON(response)
}

// TriggerRun kicks off one synchronous pipeline pass over the configured
// symbols and returns the run summary.
func (h *Handler) TriggerRun(c *fiber.Ctx) error {
	start := time.Now()

	logger.Info("pipeline run triggered via API",
		zap.String("request_id", requestID(c)))

	summary, err := h.pipelineService.Run(c.Context(), h.cfg.Symbols)
	if err != nil {
		logger.Error("pipeline run failed to start", zap.Error(err))
		return internalError(c, "pipeline run failed to start")
	}

	h.priceService.Invalidate(c.Context(), h.cfg.Symbols)

	return c.JSON(RunResponse{
		Status:        summary.Status,
		RecordsTotal:  summary.RecordsTotal,
		CountByStatus: summary.CountByStatus,
		Outcomes:      summary.Outcomes,
		Duration:      time.Since(start).String(),
	})
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)
	healthy := true

	dbStart := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		healthy = false
		services["postgres"] = ServiceHealth{Status: "down", Error: err.Error()}
	} else {
		services["postgres"] = ServiceHealth{Status: "up", Latency: time.Since(dbStart).String()}
	}

	if h.cacheService != nil {
		cacheStart := time.Now()
		if err := h.cacheService.HealthCheck(ctx); err != nil {
			services["redis"] = ServiceHealth{Status: "down", Error: err.Error()}
		} else {
			services["redis"] = ServiceHealth{Status: "up", Latency: time.Since(cacheStart).String()}
		}
	}

	status := "ok"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	})
}

func dateQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:     message,
		Code:      fiber.StatusBadRequest,
		RequestID: requestID(c),
		Timestamp: time.Now(),
	})
}

func internalError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:     message,
		Code:      fiber.StatusInternalServerError,
		RequestID: requestID(c),
		Timestamp: time.Now(),
	})
}
