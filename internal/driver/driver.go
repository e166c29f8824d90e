// Package driver provides the interchangeable data source drivers: the
// production data-lake driver backed by DuckDB and the local dummy store
// backed by SQLite. Selection happens in configuration, not in the
// executor.
package driver

import (
	"context"
	"database/sql"

	"forecastd/internal/domain"
)

// queryRows runs a statement and scans every result row into a generic
// map keyed by column name. Row order follows the statement's ORDER BY.
func queryRows(ctx context.Context, db *sql.DB, sqlText string, args []any) ([]domain.Row, error) {
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(domain.Row, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
