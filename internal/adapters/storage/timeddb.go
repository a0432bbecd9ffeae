package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"forgefit/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sqlx.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Compile-time check that *sqlx.DB satisfies SQLDB.
var _ SQLDB = (*sqlx.DB)(nil)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

// TimedDB wraps a *sqlx.DB to log slow queries and optionally record to a collector.
type TimedDB struct {
	db        *sqlx.DB
	collector *perf.Collector
	threshold float64
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid database connection; collector may be nil
// POST: Returns a TimedDB that warns on queries slower than slowQueryMs (DefaultSlowQueryMs when <= 0)
func NewTimedDB(db *sqlx.DB, collector *perf.Collector, slowQueryMs int) *TimedDB {
	if slowQueryMs <= 0 {
		slowQueryMs = DefaultSlowQueryMs
	}
	return &TimedDB{
		db:        db,
		collector: collector,
		threshold: float64(slowQueryMs),
	}
}

// RawDB returns the underlying *sqlx.DB (needed for migrations and Close).
func (t *TimedDB) RawDB() *sqlx.DB {
	return t.db
}

// logQuery logs and optionally records a query timing.
func (t *TimedDB) logQuery(op string, start time.Time, err error) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	if durationMs >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}

	t.collector.Record(perf.Entry{
		Kind:       perf.KindQuery,
		Path:       "db." + op,
		Failed:     err != nil && err != sql.ErrNoRows,
		DurationMs: durationMs,
		Timestamp:  start,
	})
}

// ExecContext wraps sqlx.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("ExecContext", start, err)
	return result, err
}

// GetContext wraps sqlx.DB.GetContext with timing.
func (t *TimedDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	err := t.db.GetContext(ctx, dest, query, args...)
	t.logQuery("GetContext", start, err)
	return err
}

// SelectContext wraps sqlx.DB.SelectContext with timing.
func (t *TimedDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	err := t.db.SelectContext(ctx, dest, query, args...)
	t.logQuery("SelectContext", start, err)
	return err
}

// Rebind converts ? placeholders to the driver's bindvar style.
func (t *TimedDB) Rebind(query string) string {
	return t.db.Rebind(query)
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
