package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type migration struct {
	version int
	sql     string
}

// migrations are applied in order; each statement must be valid on SQLite and Postgres.
var migrations = []migration{
	{1, `CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT,
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'member'
	)`},
	{2, `CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sent_email BOOLEAN NOT NULL DEFAULT FALSE,
		sent_sms BOOLEAN NOT NULL DEFAULT FALSE,
		sent_at TEXT
	)`},
	{3, `CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at)`},
}

// LatestSchemaVersion returns the version the schema reaches after Migrate.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Open connects to the database named by driver and dsn.
// PRE: driver is DriverSQLite or DriverPostgres
// POST: Returns a pinged connection; SQLite has WAL and foreign keys enabled
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}
	inMemory := driver == DriverSQLite && strings.Contains(dsn, ":memory:")
	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if driver == DriverSQLite {
		if !inMemory {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				db.Close()
				return nil, fmt.Errorf("enabling WAL mode: %w", err)
			}
		}
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}
	return db, nil
}

// Migrate applies every migration newer than the recorded schema version.
// PRE: db is open
// POST: schema_version holds LatestSchemaVersion(); returns the number of migrations applied
func Migrate(ctx context.Context, db *sqlx.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("creating schema_version table: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.version); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
		applied++
	}
	return applied, nil
}

// SchemaVersion reads the highest applied migration, 0 for a fresh database.
// PRE: schema_version exists
// POST: Returns the current version
func SchemaVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return current, nil
}
