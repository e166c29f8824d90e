package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "forecastd/internal/db"
	"forecastd/internal/domain"
)

func setupRepo(t *testing.T) *ForecastRunRepo {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	return NewForecastRunRepo(writeDB, readDB)
}

func newRun(dom, seriesKey string, generatedAt time.Time) *domain.ForecastRun {
	return &domain.ForecastRun{
		Domain:       dom,
		SeriesKey:    seriesKey,
		ModelVersion: "baseline+mc-v1",
		GeneratedAt:  generatedAt,
	}
}

func testPoints(start time.Time, n int) []domain.ForecastPoint {
	points := make([]domain.ForecastPoint, n)
	for i := range points {
		v := float64(10 + i)
		points[i] = domain.ForecastPoint{
			Timestamp: start.AddDate(0, 0, i+1),
			Value:     v,
			P10:       v - 2,
			P50:       v,
			P90:       v + 2,
		}
	}
	return points
}

func TestCreateRun_DefaultsToRunning(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	run, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "PART-0001",
		time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, domain.RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)
	assert.Nil(t, run.ErrorMessage)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), run.GeneratedAt)
}

func TestCompleteRun_WritesPointsAndPromotesPointer(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	generatedAt := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	run, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "PART-0001", generatedAt))
	require.NoError(t, err)

	points := testPoints(generatedAt, 30)
	require.NoError(t, repo.CompleteRun(ctx, run.ID, points))

	got, err := repo.GetRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, got.Status)
	assert.NotNil(t, got.FinishedAt)

	latest, err := repo.GetLatest(ctx, domain.DomainLeadTime, "PART-0001", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SourcePrecomputed, latest.Source)
	assert.Equal(t, generatedAt, latest.GeneratedAt)
	require.Len(t, latest.Points, 30)

	// Points come back in timestamp order with the band intact.
	for i, p := range latest.Points {
		assert.Equal(t, points[i].Timestamp, p.Timestamp)
		assert.InDelta(t, points[i].P10, p.P10, 1e-9)
		assert.InDelta(t, points[i].P90, p.P90, 1e-9)
		if i > 0 {
			assert.True(t, p.Timestamp.After(latest.Points[i-1].Timestamp))
		}
	}
}

func TestCompleteRun_TwiceIsConflict(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	generatedAt := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	run, err := repo.CreateRun(ctx, newRun(domain.DomainSales, "__ALL__", generatedAt))
	require.NoError(t, err)
	require.NoError(t, repo.CompleteRun(ctx, run.ID, testPoints(generatedAt, 6)))

	err = repo.CompleteRun(ctx, run.ID, testPoints(generatedAt, 6))
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestCompleteRun_UnknownRun(t *testing.T) {
	repo := setupRepo(t)

	err := repo.CompleteRun(context.Background(), domain.NewID(), nil)
	require.Error(t, err)
	var notFoundErr *domain.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestGetLatest_PointerTracksNewestSuccess(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	run1, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "__ALL__", first))
	require.NoError(t, err)
	require.NoError(t, repo.CompleteRun(ctx, run1.ID, testPoints(first, 5)))

	second := first.AddDate(0, 0, 1)
	run2, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "__ALL__", second))
	require.NoError(t, err)
	require.NoError(t, repo.CompleteRun(ctx, run2.ID, testPoints(second, 5)))

	latest, err := repo.GetLatest(ctx, domain.DomainLeadTime, "__ALL__", 0)
	require.NoError(t, err)
	assert.Equal(t, second, latest.GeneratedAt)
}

func TestGetLatest_LimitTruncatesFromStart(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	generatedAt := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	run, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "PART-0002", generatedAt))
	require.NoError(t, err)
	points := testPoints(generatedAt, 30)
	require.NoError(t, repo.CompleteRun(ctx, run.ID, points))

	latest, err := repo.GetLatest(ctx, domain.DomainLeadTime, "PART-0002", 7)
	require.NoError(t, err)
	require.Len(t, latest.Points, 7)
	assert.Equal(t, points[0].Timestamp, latest.Points[0].Timestamp)
	assert.Equal(t, points[6].Timestamp, latest.Points[6].Timestamp)
}

func TestGetLatest_NoSuccessfulRun(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// A slot with only a RUNNING run has no readable forecast.
	_, err := repo.CreateRun(ctx, newRun(domain.DomainSales, "PART-0003",
		time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = repo.GetLatest(ctx, domain.DomainSales, "PART-0003", 0)
	require.Error(t, err)
	var noRunErr *domain.NoRunAvailableError
	assert.ErrorAs(t, err, &noRunErr)
}

func TestFailRun_LeavesPointerOnPriorSuccess(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	run1, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "PART-0004", first))
	require.NoError(t, err)
	require.NoError(t, repo.CompleteRun(ctx, run1.ID, testPoints(first, 5)))

	second := first.AddDate(0, 0, 1)
	run2, err := repo.CreateRun(ctx, newRun(domain.DomainLeadTime, "PART-0004", second))
	require.NoError(t, err)
	require.NoError(t, repo.FailRun(ctx, run2.ID, "extraction failed"))

	got, err := repo.GetRunByID(ctx, run2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "extraction failed", *got.ErrorMessage)

	// Readers still see the first run.
	latest, err := repo.GetLatest(ctx, domain.DomainLeadTime, "PART-0004", 0)
	require.NoError(t, err)
	assert.Equal(t, first, latest.GeneratedAt)
}

func TestFailRun_OnlyRunningRuns(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	generatedAt := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	run, err := repo.CreateRun(ctx, newRun(domain.DomainSales, "PART-0005", generatedAt))
	require.NoError(t, err)
	require.NoError(t, repo.CompleteRun(ctx, run.ID, testPoints(generatedAt, 3)))

	err = repo.FailRun(ctx, run.ID, "too late")
	require.Error(t, err)
	var notFoundErr *domain.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestListRuns_NewestFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run, err := repo.CreateRun(ctx, newRun(domain.DomainSales, "__ALL__", base.AddDate(0, 0, i)))
		require.NoError(t, err)
		require.NoError(t, repo.CompleteRun(ctx, run.ID, testPoints(base, 2)))
	}

	runs, err := repo.ListRuns(ctx, domain.DomainSales, "__ALL__", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, base.AddDate(0, 0, 2), runs[0].GeneratedAt)
	assert.Equal(t, base.AddDate(0, 0, 1), runs[1].GeneratedAt)
}

func TestGetRunByID_Unknown(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetRunByID(context.Background(), domain.NewID())
	require.Error(t, err)
	var notFoundErr *domain.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}
