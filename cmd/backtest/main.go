package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/quantkr/backtester/internal/config"
	"github.com/quantkr/backtester/internal/database"
	"github.com/quantkr/backtester/internal/marketdata"
	"github.com/quantkr/backtester/internal/results"
	"github.com/quantkr/backtester/internal/runner"
	"github.com/quantkr/backtester/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting backtester")

	start, err := time.Parse(time.DateOnly, cfg.StartDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid START_DATE")
	}
	end, err := time.Parse(time.DateOnly, cfg.EndDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid END_DATE")
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Select the price source
	var source marketdata.Source
	if cfg.PriceCSVPath != "" {
		source = marketdata.NewCSVSource(cfg.PriceCSVPath, log)
	} else {
		source = marketdata.NewSQLiteSource(db, log)
	}

	// The benchmark is loaded alongside the universe but never traded.
	symbols := cfg.Universe
	if cfg.Benchmark != "" {
		symbols = append(append([]string(nil), symbols...), cfg.Benchmark)
	}

	table, err := source.Load(symbols, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load prices")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg := runner.Config{
		InitialCapital:     cfg.InitialCapital,
		CommissionRate:     cfg.CommissionRate,
		SlippageRate:       cfg.SlippageRate,
		MaxPositions:       cfg.MaxPositions,
		RebalanceThreshold: cfg.RebalanceThreshold,
		RebalanceFrequency: cfg.RebalanceFrequency,
		Instrument:         cfg.Instrument,
		LookbackBars:       cfg.LookbackBars,
		StopLoss:           cfg.StopLoss,
		Benchmark:          cfg.Benchmark,
		Regime:             runner.DefaultConfig().Regime,
		Risk:               runner.DefaultConfig().Risk,
	}

	result, err := runner.New(runCfg, log).Run(ctx, table, cfg.Universe, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}
	result.RunID = uuid.NewString()

	repo := results.New(db, log)
	if err := repo.Save(*result, "cli", runCfg); err != nil {
		log.Error().Err(err).Msg("Failed to persist run")
	}

	log.Info().
		Str("run_id", result.RunID).
		Float64("total_return_pct", result.Metrics["total_return"]).
		Float64("cagr_pct", result.Metrics["cagr"]).
		Float64("sharpe", result.Metrics["sharpe_ratio"]).
		Float64("max_drawdown_pct", result.Metrics["max_drawdown"]).
		Float64("cost_drag_pct", result.Metrics["cost_drag"]).
		Int("trades", len(result.Trades)).
		Msg("Backtest finished")
}
