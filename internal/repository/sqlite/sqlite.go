// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so the
// binary builds without cgo. Use ":memory:" as the path in tests.
//
// TABLES:
//   - users         actors (unique username, bcrypt password hash, role)
//   - TrashProblems reports
//
// Every report mutation runs under DB.writeMu together with the publish that
// follows it, so subscribers never observe an older snapshot after a newer one.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/trashwatch/internal/feed"
	"github.com/sakif/trashwatch/internal/model"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB

	writeMu sync.Mutex
	reports *feed.Broadcaster[[]model.Report]
	logger  *slog.Logger

	// now is the clock used for resolution timestamps. Tests replace it.
	now func() time.Time
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/trashwatch.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and SQLite
	// serialises writers anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn:    conn,
		reports: feed.New[[]model.Report](),
		logger:  logger,
		now:     time.Now,
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// The TrashProblems id uses AUTOINCREMENT so ids are never reused, even after
// INSERT OR REPLACE rewrites a row.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role     TEXT NOT NULL CHECK (role IN ('User', 'Admin'))
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS TrashProblems (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     INTEGER NOT NULL,
			image_path  TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL CHECK (status IN ('Reported', 'Resolved')),
			admin_name  TEXT,
			reported_at DATETIME NOT NULL,
			resolved_at DATETIME,
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trash_problems_user_id ON TrashProblems(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating TrashProblems table: %w", err)
	}

	return nil
}
