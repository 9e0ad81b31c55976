package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finbase/stock-ingestor/internal/config"
	"github.com/finbase/stock-ingestor/internal/domain"
	"github.com/finbase/stock-ingestor/internal/ingestion"
	"github.com/finbase/stock-ingestor/internal/service"
	"github.com/finbase/stock-ingestor/internal/storage/postgres"
	pkglogger "github.com/finbase/stock-ingestor/pkg/logger"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "stock-ingestor",
		Short: "Stock price ingestion pipeline CLI",
		Long: `CLI for the stock price ingestion pipeline.
Fetches daily price data from the market-data provider and upserts it
into PostgreSQL. Intended to be invoked once per scheduled tick by an
external orchestrator.`,
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion pass over the configured symbols",
		Long: `Runs one pipeline pass: for each configured symbol, fetch the
provider payload (throttled), normalize it and upsert the rows. Exits
non-zero when the run is a total failure so the orchestrator can mark
the scheduled task as failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			symbolsFlag, _ := cmd.Flags().GetString("symbols")
			mode, _ := cmd.Flags().GetString("mode")
			return runPipeline(symbolsFlag, mode)
		},
	}

	runCmd.Flags().StringP("symbols", "s", "", "Comma-separated symbols (default: STOCK_SYMBOLS)")
	runCmd.Flags().StringP("mode", "m", "", "Fetch mode: daily or quote (default: FETCH_MODE)")

	var schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Create or migrate the stock_prices table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ensureSchema()
		},
	}

	var latestCmd = &cobra.Command{
		Use:   "latest [symbol]",
		Short: "Show the most recent stored price for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLatest(args[0])
		},
	}

	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	rootCmd.AddCommand(runCmd, schemaCmd, latestCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runPipeline(symbolsFlag, modeFlag string) error {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer pkglogger.Close()

	symbols := cfg.Symbols
	if symbolsFlag != "" {
		symbols = strings.Split(symbolsFlag, ",")
	}

	mode := cfg.FetchMode
	if modeFlag != "" {
		mode = modeFlag
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	throttle := ingestion.NewThrottle(cfg.Throttle())
	client := ingestion.NewClient(cfg.ProviderBaseURL, cfg.APIKey, cfg.ProviderTimeout)
	parser := ingestion.NewParser()
	writer := ingestion.NewWriter(db.Pool())
	pipeline := service.NewPipelineService(throttle, client, parser, writer, mode)

	summary, err := pipeline.Run(ctx, symbols)
	if err != nil {
		return err
	}

	printSummary(summary)

	if summary.Status == domain.RunTotalFailure {
		return fmt.Errorf("run failed: no symbol succeeded")
	}

	return nil
}

func printSummary(summary *domain.RunSummary) {
	fmt.Printf("\nRun status: %s\n", summary.Status)
	fmt.Printf("Rows written: %d\n\n", summary.RecordsTotal)

	for _, o := range summary.Outcomes {
		if o.Detail != "" {
			fmt.Printf("  %-8s %-14s %5d  %s\n", o.Symbol, o.Status, o.RecordsWritten, o.Detail)
		} else {
			fmt.Printf("  %-8s %-14s %5d\n", o.Symbol, o.Status, o.RecordsWritten)
		}
	}
}

func ensureSchema() error {
	cfg := config.Load()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	fmt.Println("Schema ensured")
	return nil
}

func showLatest(symbol string) error {
	cfg := config.Load()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := db.LatestPrice(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return err
	}

	fmt.Printf("Symbol:       %s\n", record.Symbol)
	fmt.Printf("Trading day:  %s\n", record.TradingDay.Format("2006-01-02"))
	printDecimal("Open", record.Open)
	printDecimal("High", record.High)
	printDecimal("Low", record.Low)
	printDecimal("Close", record.Close)
	printDecimal("Adj close", record.AdjustedClose)
	if record.Volume != nil {
		fmt.Printf("%-13s %d\n", "Volume:", *record.Volume)
	}
	printDecimal("Current", record.CurrentPrice)
	fmt.Printf("Last updated: %s\n", record.LastUpdated.Format(time.RFC3339))

	return nil
}

func printDecimal(name string, d *decimal.Decimal) {
	if d != nil {
		fmt.Printf("%-13s %s\n", name+":", d.String())
	}
}

func checkHealth() error {
	cfg := config.Load()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	fmt.Println("PostgreSQL: ok")
	return nil
}
