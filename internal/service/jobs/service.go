// Package jobs orchestrates scheduled forecast runs: extraction through
// the controlled query path, computation in the forecast engine, and
// atomic persistence of the results.
package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"forecastd/internal/domain"
	"forecastd/internal/executor"
	"forecastd/internal/forecast"
	"forecastd/internal/queryfilter"
)

// Config controls job composition.
type Config struct {
	// HorizonDays is the number of daily steps forecast for lead_time
	// (default 30).
	HorizonDays int
	// HorizonMonths is the number of monthly steps forecast for sales
	// (default 6).
	HorizonMonths int
	// LookbackDays bounds the extraction window (default 1460).
	LookbackDays int
	// MaxConcurrent caps how many slot jobs run in parallel (default 4).
	MaxConcurrent int
}

func (c Config) horizonDays() int {
	if c.HorizonDays <= 0 {
		return 30
	}
	return c.HorizonDays
}

func (c Config) horizonMonths() int {
	if c.HorizonMonths <= 0 {
		return 6
	}
	return c.HorizonMonths
}

func (c Config) lookbackDays() int {
	if c.LookbackDays <= 0 {
		return 1460
	}
	return c.LookbackDays
}

func (c Config) maxConcurrent() int {
	if c.MaxConcurrent <= 0 {
		return 4
	}
	return c.MaxConcurrent
}

// Service runs forecast jobs. Each (domain, series_key) slot is guarded so
// at most one run per slot is in flight; a trigger hitting a busy slot is
// skipped, not queued.
type Service struct {
	runs   domain.ForecastRunRepository
	exec   *executor.Executor
	filter *queryfilter.Filter
	engine *forecast.Engine
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates a job Service wired with the given dependencies.
func NewService(
	runs domain.ForecastRunRepository,
	exec *executor.Executor,
	filter *queryfilter.Filter,
	engine *forecast.Engine,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		runs:     runs,
		exec:     exec,
		filter:   filter,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// domainPlan maps a forecast domain to its extraction query and series
// shape.
type domainPlan struct {
	queryID   string
	frequency forecast.Frequency
	horizon   int
	group     func([]domain.Row) map[string][]forecast.Observation
}

func (s *Service) planFor(dom string) domainPlan {
	switch dom {
	case domain.DomainLeadTime:
		return domainPlan{
			queryID:   "lead_time_extract",
			frequency: forecast.FreqDaily,
			horizon:   s.cfg.horizonDays(),
			group:     forecast.BuildLeadTimeSeries,
		}
	default:
		return domainPlan{
			queryID:   "sales_monthly_history",
			frequency: forecast.FreqMonthly,
			horizon:   s.cfg.horizonMonths(),
			group:     forecast.BuildSalesSeries,
		}
	}
}

// RunAll executes one forecast job across every configured domain and
// every series discovered in the extraction, and reports a summary.
func (s *Service) RunAll(ctx context.Context, now time.Time) (*domain.JobSummary, error) {
	generatedAt := now.UTC().Truncate(time.Second)
	summary := &domain.JobSummary{GeneratedAt: generatedAt}
	var sm sync.Mutex

	for _, dom := range domain.Domains() {
		s.runDomain(ctx, dom, generatedAt, summary, &sm)
	}

	return summary, nil
}

// runDomain extracts fresh history for one domain and fans the discovered
// series out to slot jobs. An extraction failure is recorded as a failed
// run on the domain's aggregate slot and retried at the next trigger.
func (s *Service) runDomain(ctx context.Context, dom string, generatedAt time.Time,
	summary *domain.JobSummary, sm *sync.Mutex) {

	plan := s.planFor(dom)
	logger := s.logger.With("domain", dom)

	startDate := generatedAt.AddDate(0, 0, -s.cfg.lookbackDays()).Format("2006-01-02")
	bq, err := s.filter.Validate(plan.queryID, map[string]any{"start_date": startDate})
	if err != nil {
		// The scheduler only issues registry-known queries, so this is a
		// registry/filter mismatch, not a transient condition.
		logger.Error("extraction query rejected", "query_id", plan.queryID, "error", err)
		s.recordAggregateFailure(ctx, dom, generatedAt, err, summary, sm)
		return
	}

	rows, err := s.exec.Execute(ctx, bq)
	if err != nil {
		logger.Warn("extraction failed", "query_id", plan.queryID, "error", err)
		s.recordAggregateFailure(ctx, dom, generatedAt, err, summary, sm)
		return
	}

	series := plan.group(rows)

	keys := make([]string, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.maxConcurrent())

	for _, key := range keys {
		obs := series[key]

		// Thin per-product series are skipped without creating a run; the
		// aggregate slot always runs so insufficient history is recorded.
		if key != domain.SeriesKeyAll && len(obs) < s.engine.MinObservations() {
			logger.Debug("series skipped", "series_key", key, "observations", len(obs))
			continue
		}

		if !s.tryAcquire(dom, key) {
			logger.Warn("overlapping-run-skipped", "series_key", key)
			sm.Lock()
			summary.SkippedSlots++
			sm.Unlock()
			continue
		}

		g.Go(func() error {
			defer s.release(dom, key)
			s.runSlot(gctx, dom, key, obs, plan, generatedAt, summary, sm)
			return nil
		})
	}

	_ = g.Wait()
}

// runSlot executes the full run lifecycle for one slot: create the run in
// RUNNING state, compute points, then persist them and promote the latest
// pointer atomically. Any failure marks the run FAILED and leaves the
// pointer on the prior successful run.
func (s *Service) runSlot(ctx context.Context, dom, key string, obs []forecast.Observation,
	plan domainPlan, generatedAt time.Time, summary *domain.JobSummary, sm *sync.Mutex) {

	logger := s.logger.With("domain", dom, "series_key", key)

	run, err := s.runs.CreateRun(ctx, &domain.ForecastRun{
		Domain:       dom,
		SeriesKey:    key,
		Status:       domain.RunStatusRunning,
		ModelVersion: forecast.ModelVersion,
		GeneratedAt:  generatedAt,
	})
	if err != nil {
		logger.Error("create run failed", "error", err)
		sm.Lock()
		summary.FailedSlots++
		sm.Unlock()
		return
	}

	points, err := s.engine.Compute(key, obs, plan.horizon, plan.frequency)
	if err != nil {
		logger.Warn("forecast computation failed", "run_id", run.ID, "error", err)
		s.failRun(ctx, run.ID, err, logger)
		sm.Lock()
		summary.FailedSlots++
		sm.Unlock()
		return
	}

	if err := s.runs.CompleteRun(ctx, run.ID, points); err != nil {
		logger.Error("persist run failed", "run_id", run.ID, "error", err)
		s.failRun(ctx, run.ID, err, logger)
		sm.Lock()
		summary.FailedSlots++
		sm.Unlock()
		return
	}

	sm.Lock()
	switch dom {
	case domain.DomainLeadTime:
		summary.LeadTimeSeries++
	case domain.DomainSales:
		summary.SalesSeries++
	}
	summary.RowsWritten += len(points)
	sm.Unlock()
}

// recordAggregateFailure pins an extraction failure to the domain's
// aggregate slot so the failure reason is observable in run history.
func (s *Service) recordAggregateFailure(ctx context.Context, dom string, generatedAt time.Time,
	cause error, summary *domain.JobSummary, sm *sync.Mutex) {

	sm.Lock()
	summary.FailedSlots++
	sm.Unlock()

	if !s.tryAcquire(dom, domain.SeriesKeyAll) {
		return
	}
	defer s.release(dom, domain.SeriesKeyAll)

	run, err := s.runs.CreateRun(ctx, &domain.ForecastRun{
		Domain:       dom,
		SeriesKey:    domain.SeriesKeyAll,
		Status:       domain.RunStatusRunning,
		ModelVersion: forecast.ModelVersion,
		GeneratedAt:  generatedAt,
	})
	if err != nil {
		s.logger.Error("record extraction failure", "domain", dom, "error", err)
		return
	}
	s.failRun(ctx, run.ID, cause, s.logger.With("domain", dom))
}

func (s *Service) failRun(ctx context.Context, runID string, cause error, logger *slog.Logger) {
	if err := s.runs.FailRun(ctx, runID, cause.Error()); err != nil {
		logger.Error("mark run failed", "run_id", runID, "error", err)
	}
}

func slotKey(dom, seriesKey string) string {
	return dom + "/" + seriesKey
}

// tryAcquire marks a slot in flight. It returns false when the slot
// already has a running job, enforcing at most one run per slot.
func (s *Service) tryAcquire(dom, seriesKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey(dom, seriesKey)
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Service) release(dom, seriesKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, slotKey(dom, seriesKey))
}
