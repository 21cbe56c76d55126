// Package engine implements the event ingestion and query core:
// normalization, batch ingestion with partial-failure reconciliation,
// tenant-scoped querying, and summary statistics.
//
// The engine holds no state between calls; all durable state lives in
// the injected EventStore, which also enforces event_id uniqueness and
// tenant isolation constraints.
package engine

import (
	"log/slog"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/store"
	"github.com/pulsetrace/pulsetrace/internal/token"
)

// Engine coordinates the ingestion and query paths on top of an
// abstract event store.
type Engine struct {
	store  store.EventStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the ingestion-time clock (for testing).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the event identity generator (for testing).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New creates an Engine backed by st.
func New(st store.EventStore, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  token.NewEventID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
