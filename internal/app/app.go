// Package app provides application-level wiring for the forecast service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"forecastd/internal/api"
	"forecastd/internal/config"
	"forecastd/internal/db/repository"
	"forecastd/internal/domain"
	"forecastd/internal/driver"
	"forecastd/internal/executor"
	"forecastd/internal/forecast"
	"forecastd/internal/queryfilter"
	"forecastd/internal/registry"
	"forecastd/internal/service/jobs"
)

// Deps holds the external dependencies that main() must provide:
// database handles for the run store, the source driver, and config.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Source  domain.SourceDriver
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Runs      *repository.ForecastRunRepo
	Registry  *registry.Registry
	Filter    *queryfilter.Filter
	Executor  *executor.Executor
	Engine    *forecast.Engine
	Jobs      *jobs.Service
	Scheduler *jobs.Scheduler
	Server    *api.Server
}

// New wires repositories, the controlled query path, the forecast engine,
// the job service, the scheduler, and the HTTP server.
func New(_ context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	reg, err := registry.Load(deps.Source.Dialect())
	if err != nil {
		return nil, fmt.Errorf("load query registry: %w", err)
	}

	filter := queryfilter.New(reg)
	exec := executor.New(deps.Source, deps.Logger.With("component", "executor"))

	engine := forecast.NewEngine(forecast.Config{
		Simulations: cfg.Forecast.Simulations,
		Seed:        cfg.Forecast.RandomSeed,
	})

	runs := repository.NewForecastRunRepo(deps.WriteDB, deps.ReadDB)

	jobSvc := jobs.NewService(runs, exec, filter, engine, jobs.Config{
		HorizonDays:   cfg.Forecast.HorizonDays,
		HorizonMonths: cfg.Forecast.HorizonMonths,
		LookbackDays:  cfg.Forecast.LookbackDays,
		MaxConcurrent: cfg.Forecast.MaxConcurrent,
	}, deps.Logger.With("component", "jobs"))

	scheduler := jobs.NewScheduler(jobSvc, cfg.Forecast.Cron,
		deps.Logger.With("component", "scheduler"))

	server := api.NewServer(runs, runs, reg, filter, exec, api.Options{
		QueryRowLimit:      cfg.QueryRowLimit,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, deps.Logger.With("component", "api"))

	return &App{
		Runs:      runs,
		Registry:  reg,
		Filter:    filter,
		Executor:  exec,
		Engine:    engine,
		Jobs:      jobSvc,
		Scheduler: scheduler,
		Server:    server,
	}, nil
}

// OpenSource opens the configured source driver.
func OpenSource(cfg *config.Config) (domain.SourceDriver, error) {
	switch cfg.SourceDriver {
	case config.DriverDuckDB:
		return driver.OpenDuckDBSource(cfg.SourceDSN)
	default:
		return driver.OpenSQLiteSource(cfg.SourceDSN)
	}
}
