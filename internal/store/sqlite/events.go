package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

const eventColumns = `event_id, user_id, event_name, properties, ts, session_id, organization_id, project_id, user_agent, ip_address, created_at, updated_at`

// InsertMany persists a batch one record at a time; ON CONFLICT DO
// NOTHING keeps a duplicate event_id from aborting the rest, and
// RowsAffected()==0 is the duplicate signal. Any other failure aborts
// with an error and no outcome list.
func (s *Store) InsertMany(ctx context.Context, events []models.Event) ([]store.InsertOutcome, error) {
	const query = `
	INSERT INTO events (event_id, user_id, event_name, properties, ts, session_id, organization_id, project_id, user_agent, ip_address, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(event_id) DO NOTHING
	`

	now := time.Now().UTC()
	outcomes := make([]store.InsertOutcome, len(events))
	for i := range events {
		events[i].CreatedAt = now
		events[i].UpdatedAt = now

		props, err := json.Marshal(events[i].Properties)
		if err != nil {
			return nil, fmt.Errorf("marshal properties: %w", err)
		}

		result, err := s.db.ExecContext(ctx, query,
			events[i].EventID,
			events[i].UserID,
			events[i].EventName,
			string(props),
			formatTime(events[i].Timestamp),
			nullIfEmpty(events[i].SessionID),
			events[i].OrganizationID,
			events[i].ProjectID,
			nullIfEmpty(events[i].UserAgent),
			nullIfEmpty(events[i].IPAddress),
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert event %s: %w", events[i].EventID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		outcomes[i] = store.InsertOutcome{
			EventID:  events[i].EventID,
			Inserted: affected > 0,
		}
	}

	return outcomes, nil
}

func buildEventWhere(f store.EventFilter) (string, []any) {
	var sb strings.Builder
	args := []any{f.OrganizationID, f.ProjectID}
	sb.WriteString(" WHERE organization_id = ? AND project_id = ?")

	if f.UserID != "" {
		sb.WriteString(" AND user_id = ?")
		args = append(args, f.UserID)
	}
	if f.EventName != "" {
		sb.WriteString(" AND event_name = ?")
		args = append(args, f.EventName)
	}
	if f.SessionID != "" {
		sb.WriteString(" AND session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Start != nil {
		sb.WriteString(" AND ts >= ?")
		args = append(args, formatTime(*f.Start))
	}
	if f.End != nil {
		sb.WriteString(" AND ts <= ?")
		args = append(args, formatTime(*f.End))
	}

	return sb.String(), args
}

// Find returns one page ordered most-recent-first; ties on ts fall back
// to insertion order via the rowid.
func (s *Store) Find(ctx context.Context, f store.EventFilter, skip, limit int) ([]models.Event, error) {
	where, args := buildEventWhere(f)
	query := fmt.Sprintf("SELECT %s FROM events%s ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?", eventColumns, where)
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// Count returns the number of events matching the filter.
func (s *Store) Count(ctx context.Context, f store.EventFilter) (int64, error) {
	where, args := buildEventWhere(f)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// FindOne fetches a single event by event_id within the tenant scope.
func (s *Store) FindOne(ctx context.Context, tc models.TenantContext, eventID string) (models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE event_id = ? AND organization_id = ? AND project_id = ?", eventColumns)

	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, eventID, tc.OrganizationID, tc.ProjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, store.ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("find event: %w", err)
	}
	return ev, nil
}

// DeleteOne hard-deletes a single event by event_id within the tenant
// scope and returns the removed row.
func (s *Store) DeleteOne(ctx context.Context, tc models.TenantContext, eventID string) (models.Event, error) {
	query := fmt.Sprintf("DELETE FROM events WHERE event_id = ? AND organization_id = ? AND project_id = ? RETURNING %s", eventColumns)

	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, eventID, tc.OrganizationID, tc.ProjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, store.ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("delete event: %w", err)
	}
	return ev, nil
}

// Stats computes the tenant-scoped summary in one aggregate query.
// MIN/MAX compare the fixed-width text timestamps lexicographically,
// which matches chronological order.
func (s *Store) Stats(ctx context.Context, tc models.TenantContext) (models.EventStats, error) {
	const query = `
	SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT event_name), MAX(ts), MIN(ts)
	FROM events
	WHERE organization_id = ? AND project_id = ?
	`

	var st models.EventStats
	var latest, oldest *string
	err := s.db.QueryRowContext(ctx, query, tc.OrganizationID, tc.ProjectID).Scan(
		&st.TotalEvents,
		&st.UniqueUserCount,
		&st.UniqueEventCount,
		&latest,
		&oldest,
	)
	if err != nil {
		return models.EventStats{}, fmt.Errorf("aggregate stats: %w", err)
	}

	if latest != nil {
		t, err := parseTime(*latest)
		if err != nil {
			return models.EventStats{}, err
		}
		st.LatestEvent = &t
	}
	if oldest != nil {
		t, err := parseTime(*oldest)
		if err != nil {
			return models.EventStats{}, err
		}
		st.OldestEvent = &t
	}
	return st, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.Event, error) {
	var (
		ev                           models.Event
		props                        string
		ts, createdAt, updatedAt     string
		sessionID, userAgent, ipAddr *string
	)
	err := row.Scan(
		&ev.EventID,
		&ev.UserID,
		&ev.EventName,
		&props,
		&ts,
		&sessionID,
		&ev.OrganizationID,
		&ev.ProjectID,
		&userAgent,
		&ipAddr,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return models.Event{}, err
	}

	if err := json.Unmarshal([]byte(props), &ev.Properties); err != nil {
		return models.Event{}, fmt.Errorf("unmarshal properties: %w", err)
	}
	if ev.Timestamp, err = parseTime(ts); err != nil {
		return models.Event{}, err
	}
	if ev.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Event{}, err
	}
	if ev.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Event{}, err
	}
	ev.SessionID = orEmpty(sessionID)
	ev.UserAgent = orEmpty(userAgent)
	ev.IPAddress = orEmpty(ipAddr)
	return ev, nil
}
