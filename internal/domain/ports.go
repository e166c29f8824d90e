package domain

import "context"

// SourceDriver is the capability interface for the underlying data source.
// Two interchangeable implementations exist: the production data-lake
// driver (DuckDB) and the local dummy store (SQLite). The executor treats
// the driver as an opaque query runner.
type SourceDriver interface {
	// Dialect returns the SQL dialect name used to resolve registry
	// templates ("sqlite" or "duckdb").
	Dialect() string

	// Query runs a parameterized statement with positional bind arguments
	// and returns the ordered result rows.
	Query(ctx context.Context, sqlText string, args []any) ([]Row, error)

	// Ping verifies the driver connection is usable.
	Ping(ctx context.Context) error

	Close() error
}

// ForecastRunRepository owns the run lifecycle and the latest-pointer
// table. CompleteRun persists points and promotes the pointer in a single
// transaction so a partially written run can never become "latest".
type ForecastRunRepository interface {
	// CreateRun inserts a new run in RUNNING state.
	CreateRun(ctx context.Context, run *ForecastRun) (*ForecastRun, error)

	// CompleteRun writes the full ordered point sequence, marks the run
	// SUCCEEDED, and swaps the latest pointer for the slot — atomically.
	CompleteRun(ctx context.Context, runID string, points []ForecastPoint) error

	// FailRun marks the run FAILED with a reason. The latest pointer is
	// left untouched.
	FailRun(ctx context.Context, runID string, reason string) error

	// GetRunByID returns a run by its ID.
	GetRunByID(ctx context.Context, id string) (*ForecastRun, error)

	// ListRuns returns the most recent runs for a slot, newest first.
	ListRuns(ctx context.Context, domain, seriesKey string, limit int) ([]ForecastRun, error)
}

// ForecastReader is the read surface consumed by the API layer. Reads
// resolve through the latest pointer only and never observe a run
// mid-write.
type ForecastReader interface {
	// GetLatest returns the latest succeeded run for a slot with at most
	// limit points from the start of the ordered sequence (limit <= 0
	// means no truncation). Returns NoRunAvailableError when no run has
	// ever succeeded for the slot.
	GetLatest(ctx context.Context, domain, seriesKey string, limit int) (*LatestForecast, error)
}
