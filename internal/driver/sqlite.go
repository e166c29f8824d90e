package driver

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"forecastd/internal/domain"
)

// Compile-time interface check.
var _ domain.SourceDriver = (*SQLiteSource)(nil)

// SQLiteSource is the local dummy store. It owns the source tables
// (part_master, ic_orders, sales_history) and can seed them with
// deterministic pseudo-random data for development.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLiteSource opens (or creates) the dummy source database at path
// and ensures the source schema exists.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite source: %w", err)
	}

	s := &SQLiteSource{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Dialect implements domain.SourceDriver.
func (s *SQLiteSource) Dialect() string { return "sqlite" }

// Query implements domain.SourceDriver.
func (s *SQLiteSource) Query(ctx context.Context, sqlText string, args []any) ([]domain.Row, error) {
	return queryRows(ctx, s.db, sqlText, args)
}

// Ping implements domain.SourceDriver.
func (s *SQLiteSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS part_master (
    part_no          TEXT PRIMARY KEY,
    part_description TEXT NOT NULL,
    part_category    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ic_orders (
    order_no           TEXT NOT NULL,
    line_no            INTEGER NOT NULL,
    part_no            TEXT NOT NULL,
    date_entered       TEXT NOT NULL,
    need_date          TEXT,
    complete_date      TEXT,
    real_ship_date     TEXT,
    division           TEXT,
    rowstate           TEXT NOT NULL,
    PRIMARY KEY (order_no, line_no)
);

CREATE TABLE IF NOT EXISTS sales_history (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    part_no   TEXT NOT NULL,
    sale_date TEXT NOT NULL,
    quantity  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_ic_orders_part_entered ON ic_orders (part_no, date_entered);
CREATE INDEX IF NOT EXISTS ix_sales_part_date ON sales_history (part_no, sale_date);
`
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create source schema: %w", err)
	}
	return nil
}

// SeedOptions controls dummy data generation.
type SeedOptions struct {
	Parts  int
	Orders int
	Seed   int64
	Now    time.Time
}

// SeedResult reports what was written.
type SeedResult struct {
	Parts  int
	Orders int
	Sales  int
}

const dateTimeLayout = "2006-01-02 15:04:05"

// Seed replaces the source tables' contents with a deterministic
// pseudo-random dataset: closed and released orders over the past two
// years plus one sales record per closed order.
func (s *SQLiteSource) Seed(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	if opts.Parts <= 0 {
		opts.Parts = 20
	}
	if opts.Orders <= 0 {
		opts.Orders = 500
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	now := opts.Now.Truncate(time.Second)
	start := now.AddDate(0, 0, -730)
	totalDays := int(now.Sub(start).Hours() / 24)

	rng := rand.New(rand.NewSource(opts.Seed))
	categories := []string{"Aerospace", "Defense", "MRO", "Industrial"}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range []string{"sales_history", "ic_orders", "part_master"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	partNos := make([]string, 0, opts.Parts)
	for i := 1; i <= opts.Parts; i++ {
		partNo := fmt.Sprintf("PART-%04d", i)
		partNos = append(partNos, partNo)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO part_master (part_no, part_description, part_category) VALUES (?, ?, ?)`,
			partNo, fmt.Sprintf("Component %d", i), categories[i%len(categories)],
		)
		if err != nil {
			return nil, fmt.Errorf("insert part: %w", err)
		}
	}

	sales := 0
	for i := 1; i <= opts.Orders; i++ {
		partNo := partNos[rng.Intn(len(partNos))]
		entered := start.AddDate(0, 0, rng.Intn(totalDays+1))
		plannedLead := int(math.Max(2, math.Round(rng.NormFloat64()*5+18)))
		completed := entered.AddDate(0, 0, plannedLead)
		isClosed := completed.Before(now.AddDate(0, 0, -2))
		needDate := entered.AddDate(0, 0, max(7, plannedLead-2))

		var completeDate, shipDate any
		rowstate := "Released"
		if isClosed {
			completeDate = completed.Format(dateTimeLayout)
			shipDate = completed.AddDate(0, 0, 1).Format(dateTimeLayout)
			rowstate = "Closed"
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO ic_orders
			   (order_no, line_no, part_no, date_entered, need_date, complete_date, real_ship_date, division, rowstate)
			 VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)`,
			fmt.Sprintf("ORD-%07d", i), partNo,
			entered.Format(dateTimeLayout), needDate.Format(dateTimeLayout),
			completeDate, shipDate,
			fmt.Sprintf("DIV-%d", (i%3)+1), rowstate,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order: %w", err)
		}

		if isClosed {
			quantity := math.Max(1.0, rng.NormFloat64()*12+30)
			_, err := tx.ExecContext(ctx,
				`INSERT INTO sales_history (part_no, sale_date, quantity) VALUES (?, ?, ?)`,
				partNo, completed.Format("2006-01-02"), math.Round(quantity*100)/100,
			)
			if err != nil {
				return nil, fmt.Errorf("insert sale: %w", err)
			}
			sales++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &SeedResult{Parts: opts.Parts, Orders: opts.Orders, Sales: sales}, nil
}
