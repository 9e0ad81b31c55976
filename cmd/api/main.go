package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/finbase/stock-ingestor/internal/api"
	"github.com/finbase/stock-ingestor/internal/config"
	"github.com/finbase/stock-ingestor/internal/ingestion"
	"github.com/finbase/stock-ingestor/internal/service"
	"github.com/finbase/stock-ingestor/internal/storage/cache"
	"github.com/finbase/stock-ingestor/internal/storage/postgres"
	pkglogger "github.com/finbase/stock-ingestor/pkg/logger"
)

func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer pkglogger.Close()

	db, err := connectPostgres(cfg)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	cacheService := connectRedis(cfg)
	if cacheService != nil {
		defer cacheService.Close()
	}

	// Ingestion pipeline
	throttle := ingestion.NewThrottle(cfg.Throttle())
	client := ingestion.NewClient(cfg.ProviderBaseURL, cfg.APIKey, cfg.ProviderTimeout)
	parser := ingestion.NewParser()
	writer := ingestion.NewWriter(db.Pool())
	pipelineService := service.NewPipelineService(throttle, client, parser, writer, cfg.FetchMode)

	// Read side
	priceService := service.NewPriceService(db, cacheService)

	handler := api.NewHandler(cfg, db, cacheService, priceService, pipelineService)

	app := fiber.New(fiber.Config{
		ServerHeader:    "Stock-Ingestor",
		AppName:         "Stock Price Ingestor v1.0.0",
		ReadTimeout:     cfg.APIReadTimeout,
		WriteTimeout:    cfg.APIWriteTimeout,
		IdleTimeout:     120 * time.Second,
		ReadBufferSize:  8192,
		WriteBufferSize: 8192,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("Starting server on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal("Server error:", err)
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	log.Println("Connected to PostgreSQL")
	return db, nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Printf("Redis unavailable: %v (continuing without cache)", err)
		return nil
	}

	log.Println("Connected to Redis")
	return redisCache
}
