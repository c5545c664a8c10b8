package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/quantkr/backtester/internal/domain"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	PriceCSVPath string // when set, prices load from CSV instead of SQLite
	LogLevel     string
	LogPretty    bool

	Universe  []string
	Benchmark string
	StartDate string
	EndDate   string

	InitialCapital     float64
	CommissionRate     float64
	SlippageRate       float64
	MaxPositions       int
	RebalanceThreshold float64
	RebalanceFrequency domain.RebalanceFrequency
	Instrument         domain.InstrumentType
	LookbackBars       int
	StopLoss           float64

	BatchWorkers int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "./data/backtester.db"),
		PriceCSVPath: getEnv("PRICE_CSV_PATH", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", false),

		Universe:  splitList(getEnv("UNIVERSE", "")),
		Benchmark: getEnv("BENCHMARK", ""),
		StartDate: getEnv("START_DATE", ""),
		EndDate:   getEnv("END_DATE", ""),

		InitialCapital:     getEnvAsFloat("INITIAL_CAPITAL", 10_000_000),
		CommissionRate:     getEnvAsFloat("COMMISSION_RATE", 0.00015),
		SlippageRate:       getEnvAsFloat("SLIPPAGE_RATE", 0.001),
		MaxPositions:       getEnvAsInt("MAX_POSITIONS", 10),
		RebalanceThreshold: getEnvAsFloat("REBALANCE_THRESHOLD", 0.01),
		RebalanceFrequency: domain.RebalanceFrequency(getEnv("REBALANCE_FREQUENCY", "weekly")),
		Instrument:         domain.InstrumentType(getEnv("INSTRUMENT_TYPE", "etf")),
		LookbackBars:       getEnvAsInt("LOOKBACK_BARS", 80),
		StopLoss:           getEnvAsFloat("STOP_LOSS", -0.10),

		BatchWorkers: getEnvAsInt("BATCH_WORKERS", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and coherent
func (c *Config) Validate() error {
	if c.DatabasePath == "" && c.PriceCSVPath == "" {
		return fmt.Errorf("DATABASE_PATH or PRICE_CSV_PATH is required")
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("UNIVERSE is required (comma-separated symbols)")
	}
	if c.StartDate == "" || c.EndDate == "" {
		return fmt.Errorf("START_DATE and END_DATE are required (YYYY-MM-DD)")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL must be positive")
	}
	if !c.RebalanceFrequency.Valid() {
		return fmt.Errorf("REBALANCE_FREQUENCY must be daily, weekly or monthly")
	}
	if !c.Instrument.Valid() {
		return fmt.Errorf("INSTRUMENT_TYPE %q is not a known instrument", c.Instrument)
	}
	if c.StopLoss > 0 {
		return fmt.Errorf("STOP_LOSS must be a negative decimal fraction (e.g. -0.10) or 0 to disable")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
