// Package history provides the durable query audit log.
//
// Uses SQLite with WAL mode. The engine records every query it runs,
// best-effort; the CLI reads the log back for review.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perch3d/sceneql/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-migration
// 1 - initial queries table
const currentSchemaVersion = 1

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = fmt.Errorf("history: entry not found")

// Store is the SQLite-backed audit log. It implements engine.Recorder.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one audit entry. Satisfies engine.Recorder.
func (s *Store) Record(ctx context.Context, e engine.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries
			(query_id, query_text, started_at, duration_us,
			 class, error, row_count, truncated, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.QueryID,
		e.Query,
		e.Started.UTC().Format(time.RFC3339Nano),
		e.Duration.Microseconds(),
		e.Class.String(),
		e.Error,
		e.RowCount,
		boolInt(e.Truncated),
		boolInt(e.Cancelled),
	)
	if err != nil {
		return fmt.Errorf("record query %s: %w", e.QueryID, err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]engine.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query_id, query_text, started_at, duration_us,
		       class, error, row_count, truncated, cancelled
		FROM queries
		ORDER BY started_at DESC, query_id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var entries []engine.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given query ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, queryID string) (engine.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT query_id, query_text, started_at, duration_us,
		       class, error, row_count, truncated, cancelled
		FROM queries WHERE query_id = ?`, queryID)
	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return engine.Entry{}, ErrNotFound
	}
	return e, err
}

func scanEntry(scan func(...any) error) (engine.Entry, error) {
	var (
		e         engine.Entry
		started   string
		durUS     int64
		class     string
		truncated int
		cancelled int
	)
	err := scan(&e.QueryID, &e.Query, &started, &durUS,
		&class, &e.Error, &e.RowCount, &truncated, &cancelled)
	if err != nil {
		return engine.Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return engine.Entry{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	e.Started = t
	e.Duration = time.Duration(durUS) * time.Microsecond
	e.Class = parseClass(class)
	e.Truncated = truncated != 0
	e.Cancelled = cancelled != 0
	return e, nil
}

func parseClass(s string) engine.ErrorClass {
	for _, c := range []engine.ErrorClass{
		engine.ClassNone, engine.ClassSyntax, engine.ClassSemantic,
		engine.ClassExecution, engine.ClassInternal,
	} {
		if c.String() == s {
			return c
		}
	}
	return engine.ClassInternal
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		stmt := fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
