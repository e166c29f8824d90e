package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecastd/internal/domain"
	"forecastd/internal/queryfilter"
	"forecastd/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecute_PassesSQLAndArgs(t *testing.T) {
	driver := &testutil.MockSourceDriver{
		QueryFn: func(_ context.Context, _ string, _ []any) ([]domain.Row, error) {
			return []domain.Row{{"part_no": "PART-0001"}}, nil
		},
	}
	exec := New(driver, discardLogger())

	bq := &queryfilter.BoundQuery{
		QueryID: "lead_time_extract",
		SQL:     "SELECT part_no FROM ic_orders WHERE date_entered >= ?",
		Args:    []any{"2022-01-01"},
	}
	rows, err := exec.Execute(context.Background(), bq)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.Len(t, driver.Queries, 1)
	assert.Equal(t, bq.SQL, driver.Queries[0])
	assert.Equal(t, []any{"2022-01-01"}, driver.Args[0])
}

func TestExecute_TimeoutMapsToUnavailable(t *testing.T) {
	driver := &testutil.MockSourceDriver{
		QueryFn: func(_ context.Context, _ string, _ []any) ([]domain.Row, error) {
			return nil, fmt.Errorf("query: %w", context.DeadlineExceeded)
		},
	}
	exec := New(driver, discardLogger())

	_, err := exec.Execute(context.Background(), &queryfilter.BoundQuery{QueryID: "q"})
	require.Error(t, err)
	var unavailableErr *domain.DataSourceUnavailableError
	assert.ErrorAs(t, err, &unavailableErr)
}

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection refused" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

func TestExecute_NetworkErrorMapsToUnavailable(t *testing.T) {
	driver := &testutil.MockSourceDriver{
		QueryFn: func(_ context.Context, _ string, _ []any) ([]domain.Row, error) {
			return nil, fakeNetError{}
		},
	}
	exec := New(driver, discardLogger())

	_, err := exec.Execute(context.Background(), &queryfilter.BoundQuery{QueryID: "q"})
	require.Error(t, err)
	var unavailableErr *domain.DataSourceUnavailableError
	assert.ErrorAs(t, err, &unavailableErr)
}

func TestExecute_ExecutionErrorMapsToDataSource(t *testing.T) {
	driver := &testutil.MockSourceDriver{
		QueryFn: func(_ context.Context, _ string, _ []any) ([]domain.Row, error) {
			return nil, errors.New("no such column: part_no")
		},
	}
	exec := New(driver, discardLogger())

	_, err := exec.Execute(context.Background(), &queryfilter.BoundQuery{QueryID: "q"})
	require.Error(t, err)
	var sourceErr *domain.DataSourceError
	assert.ErrorAs(t, err, &sourceErr)

	var unavailableErr *domain.DataSourceUnavailableError
	assert.False(t, errors.As(err, &unavailableErr))
}

func TestExecute_NoRetry(t *testing.T) {
	calls := 0
	driver := &testutil.MockSourceDriver{
		QueryFn: func(_ context.Context, _ string, _ []any) ([]domain.Row, error) {
			calls++
			return nil, fakeNetError{}
		},
	}
	exec := New(driver, discardLogger())

	_, err := exec.Execute(context.Background(), &queryfilter.BoundQuery{QueryID: "q"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
