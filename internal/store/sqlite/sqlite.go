// Package sqlite implements the store contracts on SQLite via the
// CGo-free modernc.org/sqlite driver. Used for local development and as
// the database behind the store and handler tests; the semantics match
// the postgres adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// TimeFormat is the fixed-width RFC3339 format used for timestamps.
// Fixed width keeps lexicographic ordering equal to chronological
// ordering, so MIN/MAX and ORDER BY work on the TEXT column directly.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// Store wraps a SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode and busy_timeout.
func Open(path string) (*Store, error) {
	// URL-escape the path to handle special characters (?, #, spaces).
	escapedPath := url.PathEscape(path)

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", escapedPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// WAL allows concurrent readers while writes are serialized.
	db.SetMaxOpenConns(4)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Ping is used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS organizations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		website    TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		description     TEXT,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		api_key         TEXT NOT NULL UNIQUE,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id              INTEGER PRIMARY KEY,
		event_id        TEXT NOT NULL UNIQUE,
		user_id         TEXT NOT NULL,
		event_name      TEXT NOT NULL,
		properties      TEXT NOT NULL DEFAULT '{}',
		ts              TEXT NOT NULL,
		session_id      TEXT,
		organization_id TEXT NOT NULL,
		project_id      TEXT NOT NULL,
		user_agent      TEXT,
		ip_address      TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_scope_ts ON events(organization_id, project_id, ts, id);
	CREATE INDEX IF NOT EXISTS idx_events_scope_user ON events(organization_id, project_id, user_id);
	CREATE INDEX IF NOT EXISTS idx_events_scope_name ON events(organization_id, project_id, event_name);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
