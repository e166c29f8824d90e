package driver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecastd/internal/queryfilter"
	"forecastd/internal/registry"
)

func openSeededSource(t *testing.T, seed int64) *SQLiteSource {
	t.Helper()
	src, err := OpenSQLiteSource(filepath.Join(t.TempDir(), "source.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	_, err = src.Seed(context.Background(), SeedOptions{
		Parts:  5,
		Orders: 80,
		Seed:   seed,
		Now:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return src
}

func TestSQLiteSource_SeedAndLeadTimeExtract(t *testing.T) {
	src := openSeededSource(t, 42)

	reg, err := registry.Load(src.Dialect())
	require.NoError(t, err)
	filter := queryfilter.New(reg)

	bq, err := filter.Validate("lead_time_extract", map[string]any{
		"start_date": "2022-01-01",
	})
	require.NoError(t, err)

	rows, err := src.Query(context.Background(), bq.SQL, bq.Args)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	for _, row := range rows {
		assert.NotNil(t, row["part_no"])
		assert.NotNil(t, row["date_entered"])
		assert.NotNil(t, row["complete_date"], "only closed orders qualify")

		lead, ok := row["lead_time_days"].(int64)
		require.True(t, ok, "lead_time_days is %T", row["lead_time_days"])
		assert.Greater(t, lead, int64(0))
	}
}

func TestSQLiteSource_PartFilterNarrowsExtract(t *testing.T) {
	src := openSeededSource(t, 42)

	reg, err := registry.Load(src.Dialect())
	require.NoError(t, err)
	filter := queryfilter.New(reg)

	bq, err := filter.Validate("lead_time_extract", map[string]any{
		"start_date": "2022-01-01",
		"part_no":    "PART-0001",
	})
	require.NoError(t, err)

	rows, err := src.Query(context.Background(), bq.SQL, bq.Args)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, "PART-0001", row["part_no"])
	}
}

func TestSQLiteSource_SalesMonthlyHistory(t *testing.T) {
	src := openSeededSource(t, 42)

	reg, err := registry.Load(src.Dialect())
	require.NoError(t, err)
	filter := queryfilter.New(reg)

	bq, err := filter.Validate("sales_monthly_history", map[string]any{
		"start_date": "2022-01-01",
	})
	require.NoError(t, err)

	rows, err := src.Query(context.Background(), bq.SQL, bq.Args)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	for _, row := range rows {
		month, ok := row["month_start"].(string)
		require.True(t, ok)
		_, err := time.Parse("2006-01-02", month)
		assert.NoError(t, err, month)
	}
}

func TestSQLiteSource_SeedIsDeterministic(t *testing.T) {
	a := openSeededSource(t, 7)
	b := openSeededSource(t, 7)

	query := "SELECT order_no, part_no, date_entered, rowstate FROM ic_orders ORDER BY order_no"
	rowsA, err := a.Query(context.Background(), query, nil)
	require.NoError(t, err)
	rowsB, err := b.Query(context.Background(), query, nil)
	require.NoError(t, err)

	assert.Equal(t, rowsA, rowsB)
}

func TestSQLiteSource_SeedReplacesExistingData(t *testing.T) {
	src := openSeededSource(t, 7)

	result, err := src.Seed(context.Background(), SeedOptions{
		Parts:  3,
		Orders: 10,
		Seed:   99,
		Now:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Parts)
	assert.Equal(t, 10, result.Orders)

	rows, err := src.Query(context.Background(), "SELECT COUNT(*) AS n FROM part_master", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 3, rows[0]["n"])
}

func TestSQLiteSource_Ping(t *testing.T) {
	src := openSeededSource(t, 1)
	assert.NoError(t, src.Ping(context.Background()))
}
