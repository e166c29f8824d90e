package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RUN_STORE_PATH", "SOURCE_DRIVER", "SOURCE_DSN", "LISTEN_ADDR", "LOG_LEVEL",
		"FORECAST_CRON", "FORECAST_RUN_ON_START", "FORECAST_HORIZON_DAYS",
		"FORECAST_HORIZON_MONTHS", "FORECAST_SIMULATIONS", "FORECAST_RANDOM_SEED",
		"HISTORY_LOOKBACK_DAYS", "MAX_CONCURRENT_JOBS", "QUERY_ROW_LIMIT",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "forecast_runs.sqlite", cfg.RunStorePath)
	assert.Equal(t, DriverSQLite, cfg.SourceDriver)
	assert.Equal(t, "forecast_source.sqlite", cfg.SourceDSN)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500, cfg.QueryRowLimit)

	assert.Equal(t, "0 3 * * *", cfg.Forecast.Cron)
	assert.True(t, cfg.Forecast.RunOnStart)
	assert.Equal(t, 30, cfg.Forecast.HorizonDays)
	assert.Equal(t, 6, cfg.Forecast.HorizonMonths)
	assert.Equal(t, 1000, cfg.Forecast.Simulations)
	assert.Equal(t, int64(42), cfg.Forecast.RandomSeed)
	assert.Equal(t, 1460, cfg.Forecast.LookbackDays)
	assert.Equal(t, 4, cfg.Forecast.MaxConcurrent)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUN_STORE_PATH", "/tmp/runs.sqlite")
	t.Setenv("SOURCE_DRIVER", "duckdb")
	t.Setenv("SOURCE_DSN", "/data/lake.duckdb")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FORECAST_CRON", "30 2 * * *")
	t.Setenv("FORECAST_RUN_ON_START", "false")
	t.Setenv("FORECAST_HORIZON_DAYS", "60")
	t.Setenv("FORECAST_SIMULATIONS", "2000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/runs.sqlite", cfg.RunStorePath)
	assert.Equal(t, DriverDuckDB, cfg.SourceDriver)
	assert.Equal(t, "/data/lake.duckdb", cfg.SourceDSN)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "30 2 * * *", cfg.Forecast.Cron)
	assert.False(t, cfg.Forecast.RunOnStart)
	assert.Equal(t, 60, cfg.Forecast.HorizonDays)
	assert.Equal(t, 2000, cfg.Forecast.Simulations)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnv_InvalidDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE_DRIVER", "oracle")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_DRIVER")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), tt.level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nSOURCE_DRIVER=duckdb\nSOURCE_DSN=\"/data/lake.duckdb\"\n\nLOG_LEVEL='warn'\nMALFORMED LINE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "duckdb", os.Getenv("SOURCE_DRIVER"))
	assert.Equal(t, "/data/lake.duckdb", os.Getenv("SOURCE_DSN"), "double quotes stripped")
	assert.Equal(t, "warn", os.Getenv("LOG_LEVEL"), "single quotes stripped")
}

func TestLoadDotEnv_EnvTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE_DRIVER", "sqlite")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SOURCE_DRIVER=duckdb\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "sqlite", os.Getenv("SOURCE_DRIVER"))
}

func TestLoadDotEnv_MissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestParseBoolEnvDefault(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		assert.Equal(t, tt.want, parseBoolEnvDefault("TEST_BOOL", tt.def), "%q", tt.value)
	}
}
