package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

// Page size defaults and cap. The cap applies regardless of caller
// input; it is an admission-control bound, not a preference.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

// ListParams are the optional filters and pagination inputs for List.
// Filters are exact-match and ANDed; Start/End bound the event
// timestamp inclusively.
type ListParams struct {
	UserID    string
	EventName string
	SessionID string
	Start     *time.Time
	End       *time.Time
	Page      int
	Limit     int
}

// List runs a tenant-scoped, filtered, paginated read ordered by
// timestamp descending. Zero matches is a successful empty page.
func (e *Engine) List(ctx context.Context, p ListParams, tc models.TenantContext) (models.EventPage, error) {
	if !tc.Resolved() {
		return models.EventPage{}, ErrUnauthenticated
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	skip := (page - 1) * limit

	filter := store.EventFilter{
		OrganizationID: tc.OrganizationID,
		ProjectID:      tc.ProjectID,
		UserID:         p.UserID,
		EventName:      p.EventName,
		SessionID:      p.SessionID,
		Start:          p.Start,
		End:            p.End,
	}

	total, err := e.store.Count(ctx, filter)
	if err != nil {
		return models.EventPage{}, fmt.Errorf("count events: %w", err)
	}

	events, err := e.store.Find(ctx, filter, skip, limit)
	if err != nil {
		return models.EventPage{}, fmt.Errorf("find events: %w", err)
	}
	if events == nil {
		events = []models.Event{}
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)

	return models.EventPage{
		TotalCount: total,
		Events:     events,
		Pagination: models.Pagination{
			CurrentPage: page,
			Limit:       limit,
			TotalPages:  totalPages,
			HasNext:     int64(page) < totalPages,
			HasPrev:     page > 1,
		},
	}, nil
}

// GetByID fetches a single event by its event_id within the tenant
// scope. An identity that exists under another tenant is reported as
// not found, never as a permission error.
func (e *Engine) GetByID(ctx context.Context, eventID string, tc models.TenantContext) (models.Event, error) {
	if !tc.Resolved() {
		return models.Event{}, ErrUnauthenticated
	}

	ev, err := e.store.FindOne(ctx, tc, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("find event: %w", err)
	}
	return ev, nil
}

// DeleteByID hard-deletes a single event by its event_id within the
// tenant scope and returns the removed event.
func (e *Engine) DeleteByID(ctx context.Context, eventID string, tc models.TenantContext) (models.Event, error) {
	if !tc.Resolved() {
		return models.Event{}, ErrUnauthenticated
	}

	ev, err := e.store.DeleteOne(ctx, tc, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("delete event: %w", err)
	}

	e.logger.Info("event deleted",
		"organization_id", tc.OrganizationID,
		"project_id", tc.ProjectID,
		"event_id", eventID,
	)
	return ev, nil
}
