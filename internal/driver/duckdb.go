package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"forecastd/internal/domain"
)

// Compile-time interface check.
var _ domain.SourceDriver = (*DuckDBSource)(nil)

// DuckDBSource is the production data-lake driver. The DSN typically
// points at a DuckDB database file attached to the lake tables; the
// driver itself only runs the registered read queries.
type DuckDBSource struct {
	db *sql.DB
}

// OpenDuckDBSource opens the data-lake database at dsn.
func OpenDuckDBSource(dsn string) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb source: %w", err)
	}
	return &DuckDBSource{db: db}, nil
}

// Dialect implements domain.SourceDriver.
func (d *DuckDBSource) Dialect() string { return "duckdb" }

// Query implements domain.SourceDriver.
func (d *DuckDBSource) Query(ctx context.Context, sqlText string, args []any) ([]domain.Row, error) {
	return queryRows(ctx, d.db, sqlText, args)
}

// Ping implements domain.SourceDriver.
func (d *DuckDBSource) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the underlying database.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}
