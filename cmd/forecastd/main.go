// Package main is the entry point for the forecastd binary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"forecastd/internal/app"
	"forecastd/internal/config"
	internaldb "forecastd/internal/db"
	"forecastd/internal/driver"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "forecastd",
		Short:         "Precomputed lead-time and sales forecast service",
		Long:          "forecastd extracts order and sales history through an allowlisted query path, computes Monte Carlo forecasts on a schedule, and serves the precomputed results over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newRunCmd())
	return rootCmd
}

// loadConfig loads .env (if present) and the environment configuration.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	return cfg, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Run store: single-connection write pool plus a read pool, WAL mode.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.RunStorePath, 4)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("run store migrations: %w", err)
	}

	source, err := app.OpenSource(cfg)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	if err := source.Ping(ctx); err != nil {
		logger.Warn("source not reachable at startup", "driver", cfg.SourceDriver, "error", err)
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Source:  source,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer a.Scheduler.Stop()

	if cfg.Forecast.RunOnStart {
		go func() {
			summary, err := a.Jobs.RunAll(ctx, time.Now())
			if err != nil {
				logger.Error("startup forecast job failed", "error", err)
				return
			}
			logger.Info("startup forecast job completed",
				"lead_time_series", summary.LeadTimeSeries,
				"sales_series", summary.SalesSeries,
				"skipped_slots", summary.SkippedSlots,
				"failed_slots", summary.FailedSlots,
				"rows_written", summary.RowsWritten,
			)
		}()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}
	return nil
}

func newSeedCmd() *cobra.Command {
	var (
		parts  int
		orders int
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the SQLite dummy source with synthetic history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.SourceDriver != config.DriverSQLite {
				return fmt.Errorf("seed requires SOURCE_DRIVER=%s, got %q",
					config.DriverSQLite, cfg.SourceDriver)
			}

			src, err := driver.OpenSQLiteSource(cfg.SourceDSN)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			start := time.Now()
			result, err := src.Seed(cmd.Context(), driver.SeedOptions{
				Parts:  parts,
				Orders: orders,
				Seed:   seed,
			})
			if err != nil {
				return fmt.Errorf("seed source: %w", err)
			}
			logger.Info("source seeded",
				"path", cfg.SourceDSN,
				"parts", result.Parts,
				"orders", result.Orders,
				"sales", result.Sales,
				"elapsed", time.Since(start),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&parts, "parts", 20, "number of parts to generate")
	cmd.Flags().IntVar(&orders, "orders", 500, "number of closed orders to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the generated data")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one forecast job and print the summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.RunStorePath, 4)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer writeDB.Close()
			defer readDB.Close()

			if err := internaldb.RunMigrations(writeDB); err != nil {
				return fmt.Errorf("run store migrations: %w", err)
			}

			source, err := app.OpenSource(cfg)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer source.Close()

			a, err := app.New(cmd.Context(), app.Deps{
				Cfg:     cfg,
				WriteDB: writeDB,
				ReadDB:  readDB,
				Source:  source,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			summary, err := a.Jobs.RunAll(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}
