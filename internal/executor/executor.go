// Package executor runs validated queries against the active data source
// driver. It never retries internally; retry policy belongs to the caller.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"forecastd/internal/domain"
	"forecastd/internal/queryfilter"
)

// Executor delegates BoundQuery execution to an injected driver. The
// driver is opaque: production data lake and local dummy store are
// interchangeable here.
type Executor struct {
	driver domain.SourceDriver
	logger *slog.Logger
}

// New creates an Executor over the given driver.
func New(driver domain.SourceDriver, logger *slog.Logger) *Executor {
	return &Executor{driver: driver, logger: logger}
}

// Execute runs a validated query and returns the ordered result rows.
// Connection and timeout failures map to DataSourceUnavailableError;
// everything else the driver reports maps to DataSourceError.
func (e *Executor) Execute(ctx context.Context, bq *queryfilter.BoundQuery) ([]domain.Row, error) {
	start := time.Now()

	rows, err := e.driver.Query(ctx, bq.SQL, bq.Args)
	if err != nil {
		if isUnavailable(err) {
			return nil, domain.ErrDataSourceUnavailable(
				"query %q: data source unavailable: %v", bq.QueryID, err)
		}
		return nil, domain.ErrDataSource("query %q: %v", bq.QueryID, err)
	}

	e.logger.Debug("query executed",
		"query_id", bq.QueryID,
		"rows", len(rows),
		"elapsed", time.Since(start),
	)
	return rows, nil
}

// isUnavailable classifies connectivity-level failures as distinct from
// execution errors on a reachable source.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
