// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Source driver names.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// ForecastConfig holds forecast job tuning.
type ForecastConfig struct {
	Cron          string // 5-field cron expression for the scheduled job
	RunOnStart    bool   // run one job immediately on startup
	HorizonDays   int    // daily horizon steps for lead_time
	HorizonMonths int    // monthly horizon steps for sales
	Simulations   int    // Monte Carlo sample paths per series
	RandomSeed    int64  // base seed for reproducible simulations
	LookbackDays  int    // extraction window
	MaxConcurrent int    // parallel slot jobs per trigger
}

// Config holds the configuration for the forecast service.
type Config struct {
	RunStorePath string // path to the SQLite run store file
	SourceDriver string // "sqlite" (dummy store) or "duckdb" (data lake)
	SourceDSN    string // driver-specific DSN / file path
	ListenAddr   string // HTTP listen address (default ":8080")
	LogLevel     string // log level: debug, info, warn, error (default "info")

	QueryRowLimit int // server-side cap on controlled query results

	// Rate limiting for the read API.
	RateLimitRPS   float64
	RateLimitBurst int

	// CORS
	CORSAllowedOrigins []string

	Forecast ForecastConfig
}

// SlogLevel maps the configured log level string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv builds the configuration from environment variables,
// applying documented defaults for anything unset.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		RunStorePath: os.Getenv("RUN_STORE_PATH"),
		SourceDriver: strings.ToLower(os.Getenv("SOURCE_DRIVER")),
		SourceDSN:    os.Getenv("SOURCE_DSN"),
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		Forecast: ForecastConfig{
			Cron:          os.Getenv("FORECAST_CRON"),
			RunOnStart:    parseBoolEnvDefault("FORECAST_RUN_ON_START", true),
			HorizonDays:   intEnv("FORECAST_HORIZON_DAYS", 30),
			HorizonMonths: intEnv("FORECAST_HORIZON_MONTHS", 6),
			Simulations:   intEnv("FORECAST_SIMULATIONS", 1000),
			RandomSeed:    int64(intEnv("FORECAST_RANDOM_SEED", 42)),
			LookbackDays:  intEnv("HISTORY_LOOKBACK_DAYS", 1460),
			MaxConcurrent: intEnv("MAX_CONCURRENT_JOBS", 4),
		},
		QueryRowLimit:  intEnv("QUERY_ROW_LIMIT", 500),
		RateLimitBurst: intEnv("RATE_LIMIT_BURST", 200),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.RunStorePath == "" {
		cfg.RunStorePath = "forecast_runs.sqlite"
	}
	if cfg.SourceDriver == "" {
		cfg.SourceDriver = DriverSQLite
	}
	if cfg.SourceDSN == "" {
		cfg.SourceDSN = "forecast_source.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Forecast.Cron == "" {
		cfg.Forecast.Cron = "0 3 * * *"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.SourceDriver != DriverSQLite && cfg.SourceDriver != DriverDuckDB {
		return nil, fmt.Errorf("SOURCE_DRIVER must be %q or %q, got %q",
			DriverSQLite, DriverDuckDB, cfg.SourceDriver)
	}

	return cfg, nil
}

func intEnv(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Real environment variables take precedence.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
