package repository

import (
	"context"
	"database/sql"
	"fmt"

	"forecastd/internal/domain"
)

// Compile-time checks.
var _ domain.ForecastRunRepository = (*ForecastRunRepo)(nil)
var _ domain.ForecastReader = (*ForecastRunRepo)(nil)

// ForecastRunRepo persists forecast runs, their points, and the
// latest-pointer table. Writes go through the write pool; reads use the
// read pool so the read path never blocks a running recompute.
type ForecastRunRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewForecastRunRepo creates a ForecastRunRepo over a write/read pool pair.
func NewForecastRunRepo(writeDB, readDB *sql.DB) *ForecastRunRepo {
	return &ForecastRunRepo{writeDB: writeDB, readDB: readDB}
}

// CreateRun inserts a new run in RUNNING state.
func (r *ForecastRunRepo) CreateRun(ctx context.Context, run *domain.ForecastRun) (*domain.ForecastRun, error) {
	if run.ID == "" {
		run.ID = domain.NewID()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}

	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO forecast_runs (id, domain, series_key, status, model_version, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Domain, run.SeriesKey, run.Status, run.ModelVersion, timeToDB(run.GeneratedAt),
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetRunByID(ctx, run.ID)
}

// CompleteRun writes the full ordered point sequence, marks the run
// SUCCEEDED, and swaps the latest pointer — all in one transaction. The
// pointer can therefore never reference a partially written run.
func (r *ForecastRunRepo) CompleteRun(ctx context.Context, runID string, points []domain.ForecastPoint) error {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var dom, seriesKey, status string
	err = tx.QueryRowContext(ctx,
		`SELECT domain, series_key, status FROM forecast_runs WHERE id = ?`, runID,
	).Scan(&dom, &seriesKey, &status)
	if err != nil {
		return mapDBError(err)
	}
	if status != domain.RunStatusRunning {
		return domain.ErrConflict("run %s is %s, not %s", runID, status, domain.RunStatusRunning)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast_points (run_id, timestamp, value, p10, p50, p90)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx,
			runID, timeToDB(p.Timestamp), p.Value, p.P10, p.P50, p.P90,
		); err != nil {
			return fmt.Errorf("insert point: %w", mapDBError(err))
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE forecast_runs
		SET status = ?, finished_at = datetime('now')
		WHERE id = ?`,
		domain.RunStatusSucceeded, runID,
	); err != nil {
		return mapDBError(err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO forecast_latest (domain, series_key, run_id)
		VALUES (?, ?, ?)
		ON CONFLICT (domain, series_key) DO UPDATE SET run_id = excluded.run_id`,
		dom, seriesKey, runID,
	); err != nil {
		return mapDBError(err)
	}

	return tx.Commit()
}

// FailRun marks the run FAILED with a reason, leaving the latest pointer
// untouched so readers keep seeing the prior successful run.
func (r *ForecastRunRepo) FailRun(ctx context.Context, runID string, reason string) error {
	res, err := r.writeDB.ExecContext(ctx, `
		UPDATE forecast_runs
		SET status = ?, error_message = ?, finished_at = datetime('now')
		WHERE id = ? AND status = ?`,
		domain.RunStatusFailed, reason, runID, domain.RunStatusRunning,
	)
	if err != nil {
		return mapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound("no running run with id %s", runID)
	}
	return nil
}

// GetRunByID returns a run by its ID.
func (r *ForecastRunRepo) GetRunByID(ctx context.Context, id string) (*domain.ForecastRun, error) {
	return scanRun(r.writeDB.QueryRowContext(ctx, `
		SELECT id, domain, series_key, status, model_version, generated_at, finished_at, error_message, created_at
		FROM forecast_runs WHERE id = ?`, id))
}

// ListRuns returns the most recent runs for a slot, newest first.
func (r *ForecastRunRepo) ListRuns(ctx context.Context, dom, seriesKey string, limit int) ([]domain.ForecastRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, domain, series_key, status, model_version, generated_at, finished_at, error_message, created_at
		FROM forecast_runs
		WHERE domain = ? AND series_key = ?
		ORDER BY generated_at DESC, created_at DESC
		LIMIT ?`,
		dom, seriesKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ForecastRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetLatest resolves the latest pointer for a slot and returns that run's
// points truncated to limit entries from the start of the ordered
// sequence. The pointer is only ever swapped after a run fully succeeds,
// so a reader sees either the previous complete run or the new one, never
// a mix.
func (r *ForecastRunRepo) GetLatest(ctx context.Context, dom, seriesKey string, limit int) (*domain.LatestForecast, error) {
	var runID, generatedAt string
	err := r.readDB.QueryRowContext(ctx, `
		SELECT l.run_id, r.generated_at
		FROM forecast_latest l
		JOIN forecast_runs r ON r.id = l.run_id
		WHERE l.domain = ? AND l.series_key = ?`,
		dom, seriesKey,
	).Scan(&runID, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoRunAvailable("no successful run for %s/%s", dom, seriesKey)
	}
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT timestamp, value, p10, p50, p90
		FROM forecast_points
		WHERE run_id = ?
		ORDER BY timestamp ASC
		LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []domain.ForecastPoint{}
	for rows.Next() {
		var ts string
		var p domain.ForecastPoint
		if err := rows.Scan(&ts, &p.Value, &p.P10, &p.P50, &p.P90); err != nil {
			return nil, err
		}
		p.Timestamp = timeFromDB(ts)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.LatestForecast{
		Domain:      dom,
		SeriesKey:   seriesKey,
		GeneratedAt: timeFromDB(generatedAt),
		Source:      domain.SourcePrecomputed,
		Points:      points,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.ForecastRun, error) {
	var run domain.ForecastRun
	var generatedAt, createdAt string
	var finishedAt, errorMessage sql.NullString

	err := row.Scan(
		&run.ID, &run.Domain, &run.SeriesKey, &run.Status, &run.ModelVersion,
		&generatedAt, &finishedAt, &errorMessage, &createdAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}

	run.GeneratedAt = timeFromDB(generatedAt)
	run.CreatedAt = timeFromDB(createdAt)
	run.FinishedAt = timePtrFromNull(finishedAt)
	run.ErrorMessage = strPtrFromNull(errorMessage)
	return &run, nil
}
