package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

const eventColumns = `event_id, user_id, event_name, properties, ts, session_id, organization_id, project_id, user_agent, ip_address, created_at, updated_at`

const insertEventSQL = `
	INSERT INTO events(event_id, user_id, event_name, properties, ts, session_id, organization_id, project_id, user_agent, ip_address, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (event_id) DO NOTHING
`

// InsertMany persists a batch as one pipelined round trip of single-row
// inserts. ON CONFLICT DO NOTHING keeps a duplicate event_id from
// aborting the rest of the batch; RowsAffected()==0 is the duplicate
// signal. Any other failure aborts with an error and no outcome list.
func (s *Store) InsertMany(ctx context.Context, events []models.Event) ([]store.InsertOutcome, error) {
	now := time.Now().UTC()

	b := &pgx.Batch{}
	for i := range events {
		events[i].CreatedAt = now
		events[i].UpdatedAt = now

		props, err := json.Marshal(events[i].Properties)
		if err != nil {
			return nil, fmt.Errorf("marshal properties: %w", err)
		}

		b.Queue(insertEventSQL,
			events[i].EventID,
			events[i].UserID,
			events[i].EventName,
			props,
			events[i].Timestamp,
			nullIfEmpty(events[i].SessionID),
			events[i].OrganizationID,
			events[i].ProjectID,
			nullIfEmpty(events[i].UserAgent),
			nullIfEmpty(events[i].IPAddress),
			now,
			now,
		)
	}

	br := s.pool.SendBatch(ctx, b)
	defer br.Close()

	outcomes := make([]store.InsertOutcome, len(events))
	for i := range events {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("insert event %s: %w", events[i].EventID, err)
		}
		outcomes[i] = store.InsertOutcome{
			EventID:  events[i].EventID,
			Inserted: tag.RowsAffected() == 1,
		}
	}

	return outcomes, nil
}

// buildEventWhere renders the filter as a WHERE clause. Scope fields
// always lead; optional filters are ANDed behind them.
func buildEventWhere(f store.EventFilter) (string, []any) {
	var sb strings.Builder
	args := []any{f.OrganizationID, f.ProjectID}
	sb.WriteString(" WHERE organization_id=$1 AND project_id=$2")

	if f.UserID != "" {
		args = append(args, f.UserID)
		fmt.Fprintf(&sb, " AND user_id=$%d", len(args))
	}
	if f.EventName != "" {
		args = append(args, f.EventName)
		fmt.Fprintf(&sb, " AND event_name=$%d", len(args))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		fmt.Fprintf(&sb, " AND session_id=$%d", len(args))
	}
	if f.Start != nil {
		args = append(args, f.Start.UTC())
		fmt.Fprintf(&sb, " AND ts >= $%d", len(args))
	}
	if f.End != nil {
		args = append(args, f.End.UTC())
		fmt.Fprintf(&sb, " AND ts <= $%d", len(args))
	}

	return sb.String(), args
}

// Find returns one page ordered most-recent-first; ties on ts fall back
// to insertion order via the serial row id.
func (s *Store) Find(ctx context.Context, f store.EventFilter, skip, limit int) ([]models.Event, error) {
	where, args := buildEventWhere(f)

	args = append(args, limit, skip)
	query := fmt.Sprintf("SELECT %s FROM events%s ORDER BY ts DESC, id DESC LIMIT $%d OFFSET $%d",
		eventColumns, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
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
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// FindOne fetches a single event by event_id within the tenant scope.
func (s *Store) FindOne(ctx context.Context, tc models.TenantContext, eventID string) (models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE event_id=$1 AND organization_id=$2 AND project_id=$3", eventColumns)

	ev, err := scanEvent(s.pool.QueryRow(ctx, query, eventID, tc.OrganizationID, tc.ProjectID))
	if errors.Is(err, pgx.ErrNoRows) {
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
	query := fmt.Sprintf("DELETE FROM events WHERE event_id=$1 AND organization_id=$2 AND project_id=$3 RETURNING %s", eventColumns)

	ev, err := scanEvent(s.pool.QueryRow(ctx, query, eventID, tc.OrganizationID, tc.ProjectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Event{}, store.ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("delete event: %w", err)
	}
	return ev, nil
}

// Stats computes the tenant-scoped summary in one aggregate query.
// MAX/MIN over an empty set scan as NULL, which maps to nil bounds.
func (s *Store) Stats(ctx context.Context, tc models.TenantContext) (models.EventStats, error) {
	const query = `
		SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT event_name), MAX(ts), MIN(ts)
		FROM events
		WHERE organization_id=$1 AND project_id=$2
	`

	var st models.EventStats
	err := s.pool.QueryRow(ctx, query, tc.OrganizationID, tc.ProjectID).Scan(
		&st.TotalEvents,
		&st.UniqueUserCount,
		&st.UniqueEventCount,
		&st.LatestEvent,
		&st.OldestEvent,
	)
	if err != nil {
		return models.EventStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return st, nil
}

func scanEvent(row pgx.Row) (models.Event, error) {
	var (
		ev                           models.Event
		props                        []byte
		sessionID, userAgent, ipAddr *string
	)
	err := row.Scan(
		&ev.EventID,
		&ev.UserID,
		&ev.EventName,
		&props,
		&ev.Timestamp,
		&sessionID,
		&ev.OrganizationID,
		&ev.ProjectID,
		&userAgent,
		&ipAddr,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return models.Event{}, err
	}

	if err := json.Unmarshal(props, &ev.Properties); err != nil {
		return models.Event{}, fmt.Errorf("unmarshal properties: %w", err)
	}
	ev.SessionID = orEmpty(sessionID)
	ev.UserAgent = orEmpty(userAgent)
	ev.IPAddress = orEmpty(ipAddr)
	return ev, nil
}
