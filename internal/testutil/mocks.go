// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"sync"

	"forecastd/internal/domain"
)

// === Forecast Run Repository Mock ===

// MockForecastRunRepo implements domain.ForecastRunRepository and
// domain.ForecastReader for testing. Uses function fields so tests only
// need to set the methods they care about; CreateRun, CompleteRun, and
// FailRun also collect their inputs for assertions. The collected state is
// guarded by a mutex since slot jobs run concurrently.
type MockForecastRunRepo struct {
	CreateRunFn   func(ctx context.Context, run *domain.ForecastRun) (*domain.ForecastRun, error)
	CompleteRunFn func(ctx context.Context, runID string, points []domain.ForecastPoint) error
	FailRunFn     func(ctx context.Context, runID string, reason string) error
	GetRunByIDFn  func(ctx context.Context, id string) (*domain.ForecastRun, error)
	ListRunsFn    func(ctx context.Context, dom, seriesKey string, limit int) ([]domain.ForecastRun, error)
	GetLatestFn   func(ctx context.Context, dom, seriesKey string, limit int) (*domain.LatestForecast, error)

	mu        sync.Mutex
	Created   []*domain.ForecastRun             // runs passed to CreateRun
	Completed map[string][]domain.ForecastPoint // runID -> points
	Failed    map[string]string                 // runID -> reason
}

// CreateRun implements the interface method for testing.
func (m *MockForecastRunRepo) CreateRun(ctx context.Context, run *domain.ForecastRun) (*domain.ForecastRun, error) {
	if m.CreateRunFn != nil {
		out, err := m.CreateRunFn(ctx, run)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.Created = append(m.Created, out)
		m.mu.Unlock()
		return out, nil
	}
	out := *run
	if out.ID == "" {
		out.ID = domain.NewID()
	}
	m.mu.Lock()
	m.Created = append(m.Created, &out)
	m.mu.Unlock()
	return &out, nil
}

// CompleteRun implements the interface method for testing.
func (m *MockForecastRunRepo) CompleteRun(ctx context.Context, runID string, points []domain.ForecastPoint) error {
	if m.CompleteRunFn != nil {
		if err := m.CompleteRunFn(ctx, runID, points); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Completed == nil {
		m.Completed = make(map[string][]domain.ForecastPoint)
	}
	m.Completed[runID] = points
	return nil
}

// FailRun implements the interface method for testing.
func (m *MockForecastRunRepo) FailRun(ctx context.Context, runID string, reason string) error {
	if m.FailRunFn != nil {
		if err := m.FailRunFn(ctx, runID, reason); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Failed == nil {
		m.Failed = make(map[string]string)
	}
	m.Failed[runID] = reason
	return nil
}

// GetRunByID implements the interface method for testing.
func (m *MockForecastRunRepo) GetRunByID(ctx context.Context, id string) (*domain.ForecastRun, error) {
	if m.GetRunByIDFn != nil {
		return m.GetRunByIDFn(ctx, id)
	}
	panic("unexpected call to MockForecastRunRepo.GetRunByID")
}

// ListRuns implements the interface method for testing.
func (m *MockForecastRunRepo) ListRuns(ctx context.Context, dom, seriesKey string, limit int) ([]domain.ForecastRun, error) {
	if m.ListRunsFn != nil {
		return m.ListRunsFn(ctx, dom, seriesKey, limit)
	}
	panic("unexpected call to MockForecastRunRepo.ListRuns")
}

// GetLatest implements the interface method for testing.
func (m *MockForecastRunRepo) GetLatest(ctx context.Context, dom, seriesKey string, limit int) (*domain.LatestForecast, error) {
	if m.GetLatestFn != nil {
		return m.GetLatestFn(ctx, dom, seriesKey, limit)
	}
	panic("unexpected call to MockForecastRunRepo.GetLatest")
}

var (
	_ domain.ForecastRunRepository = (*MockForecastRunRepo)(nil)
	_ domain.ForecastReader        = (*MockForecastRunRepo)(nil)
)

// === Source Driver Mock ===

// MockSourceDriver implements domain.SourceDriver for testing. Executed
// SQL and arguments are recorded for assertions.
type MockSourceDriver struct {
	DialectName string
	QueryFn     func(ctx context.Context, sqlText string, args []any) ([]domain.Row, error)
	PingFn      func(ctx context.Context) error

	Queries []string // recorded SQL text, in call order
	Args    [][]any  // recorded positional args, in call order
}

// Dialect implements the interface method for testing.
func (m *MockSourceDriver) Dialect() string {
	if m.DialectName == "" {
		return "sqlite"
	}
	return m.DialectName
}

// Query implements the interface method for testing.
func (m *MockSourceDriver) Query(ctx context.Context, sqlText string, args []any) ([]domain.Row, error) {
	m.Queries = append(m.Queries, sqlText)
	m.Args = append(m.Args, args)
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sqlText, args)
	}
	return nil, nil
}

// Ping implements the interface method for testing.
func (m *MockSourceDriver) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}
	return nil
}

// Close implements the interface method for testing.
func (m *MockSourceDriver) Close() error { return nil }

var _ domain.SourceDriver = (*MockSourceDriver)(nil)
