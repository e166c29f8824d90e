// Package domain defines core types, interfaces, and errors for the
// forecast service.
package domain

import "time"

// Forecast domains. Each domain has its own extraction query and
// aggregation rule; extending the set means adding a new constant plus the
// matching registry entry.
const (
	DomainLeadTime = "lead_time"
	DomainSales    = "sales"
)

// SeriesKeyAll is the sentinel series key for the aggregate across all
// products. Aggregate and per-product series are computed independently.
const SeriesKeyAll = "__ALL__"

// Run status constants.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

// SourcePrecomputed is the literal source tag on every read response.
const SourcePrecomputed = "precomputed_table"

// Domains returns all forecast domains in stable order.
func Domains() []string {
	return []string{DomainLeadTime, DomainSales}
}

// ValidDomain reports whether s names a known forecast domain.
func ValidDomain(s string) bool {
	return s == DomainLeadTime || s == DomainSales
}

// ForecastPoint is a single forecast horizon step: the baseline point
// estimate plus the Monte Carlo quantile band. P10 <= P50 <= P90 always.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	P10       float64   `json:"p10"`
	P50       float64   `json:"p50"`
	P90       float64   `json:"p90"`
}

// ForecastRun is one execution of the forecast pipeline for one
// (domain, series_key) slot. Points are persisted separately, ordered by
// ascending timestamp with no duplicates.
type ForecastRun struct {
	ID           string
	Domain       string
	SeriesKey    string
	Status       string
	ModelVersion string
	GeneratedAt  time.Time
	FinishedAt   *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}

// LatestForecast is the standard read-side response shape: the most recent
// succeeded run's points for a slot, truncated to the requested limit.
type LatestForecast struct {
	Domain      string          `json:"domain"`
	SeriesKey   string          `json:"series_key"`
	GeneratedAt time.Time       `json:"generated_at"`
	Source      string          `json:"source"`
	Points      []ForecastPoint `json:"points"`
}

// JobSummary reports the outcome of one scheduled forecast job across all
// slots.
type JobSummary struct {
	GeneratedAt    time.Time `json:"generated_at"`
	LeadTimeSeries int       `json:"lead_time_series"`
	SalesSeries    int       `json:"sales_series"`
	SkippedSlots   int       `json:"skipped_slots"`
	FailedSlots    int       `json:"failed_slots"`
	RowsWritten    int       `json:"rows_written"`
}

// Row is a single untyped result row from the data source driver.
type Row map[string]any
