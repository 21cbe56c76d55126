// Package postgres implements the store contracts on PostgreSQL via
// pgx. Event identity uniqueness, tenant scoping, and the duplicate
// signal for batch ingestion all rest on the schema's constraints.
package postgres

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database
// schema. Safe to apply repeatedly.
//
//go:embed schema.sql
var schemaSQL string

// Store is the Postgres-backed persistence layer.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool and fails fast if the DB is unreachable.
func New(dbURL string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nullIfEmpty maps optional empty strings to NULL so absent values stay
// absent instead of becoming empty strings.
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
