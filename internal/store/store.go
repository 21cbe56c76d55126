// Package store defines the persistence contracts the engine depends
// on. Two adapters implement them: store/postgres (pgx) and
// store/sqlite (modernc.org/sqlite).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/models"
)

// ErrNotFound is returned by single-entity lookups when no row matches
// the given identity within the given scope.
var ErrNotFound = errors.New("not found")

// InsertOutcome is the per-record result of InsertMany. A record that
// was not inserted was dropped because its event_id already existed;
// any other failure aborts InsertMany with an error instead.
type InsertOutcome struct {
	EventID  string
	Inserted bool
}

// EventFilter selects events for Find/Count. OrganizationID and
// ProjectID are mandatory scope; the rest are optional and ANDed.
// Start/End bound the event timestamp inclusively.
type EventFilter struct {
	OrganizationID string
	ProjectID      string
	UserID         string
	EventName      string
	SessionID      string
	Start          *time.Time
	End            *time.Time
}

// EventStore is the abstract event persistence contract.
//
// InsertMany is unordered and best-effort: a duplicate event_id must
// not abort the remaining inserts, and every record gets an outcome.
// The event_id uniqueness constraint lives in the store and is the
// source of the duplicate signal.
type EventStore interface {
	InsertMany(ctx context.Context, events []models.Event) ([]InsertOutcome, error)

	// Find returns one page ordered by timestamp descending, ties
	// broken by insertion order.
	Find(ctx context.Context, f EventFilter, skip, limit int) ([]models.Event, error)
	Count(ctx context.Context, f EventFilter) (int64, error)

	FindOne(ctx context.Context, tc models.TenantContext, eventID string) (models.Event, error)
	// DeleteOne hard-deletes and returns the removed event.
	DeleteOne(ctx context.Context, tc models.TenantContext, eventID string) (models.Event, error)

	Stats(ctx context.Context, tc models.TenantContext) (models.EventStats, error)
}

// Registry is the tenant/project registry consumed by the API-key
// resolver and the admin CRUD surface.
type Registry interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (models.Organization, error)
	GetOrganizationByEmail(ctx context.Context, email string) (models.Organization, error)
	ListOrganizations(ctx context.Context, search string, skip, limit int) ([]models.Organization, int64, error)
	UpdateOrganization(ctx context.Context, org models.Organization) (models.Organization, error)
	DeleteOrganization(ctx context.Context, id string) (models.Organization, error)

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (models.Project, error)
	GetProjectByAPIKey(ctx context.Context, apiKey string) (models.Project, error)
	ListProjects(ctx context.Context, search string, skip, limit int) ([]models.Project, int64, error)
	UpdateProject(ctx context.Context, p models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, id string) (models.Project, error)
	ResetProjectAPIKey(ctx context.Context, id, apiKey string) (models.Project, error)
}

// Store is the full persistence surface the service is wired with.
type Store interface {
	EventStore
	Registry

	Ping(ctx context.Context) error
	Close() error
}
