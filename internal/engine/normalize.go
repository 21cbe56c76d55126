package engine

import (
	"strings"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/models"
)

// parseTimestamp parses an RFC3339 timestamp and normalizes it to UTC.
func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Normalize validates and canonicalizes one raw record into a storable
// Event. idx is the record's position in the batch, used in error
// messages. Pure aside from clock reads and identity generation.
//
// Scope fields are stamped from tc; any same-named values in the
// payload are ignored. A missing timestamp defaults to ingestion time;
// a present but unparsable one is rejected rather than silently
// replaced, so client clock bugs surface instead of skewing queries.
func (e *Engine) Normalize(raw models.RawEvent, tc models.TenantContext, md models.RequestMetadata, idx int) (models.Event, error) {
	userID := strings.TrimSpace(raw.UserID)
	if userID == "" {
		return models.Event{}, &ValidationError{Index: idx, Field: "user_id", Reason: "is required for each event"}
	}

	eventName := strings.TrimSpace(raw.EventName)
	if eventName == "" {
		return models.Event{}, &ValidationError{Index: idx, Field: "event_name", Reason: "is required for each event"}
	}

	eventID := strings.TrimSpace(raw.EventID)
	if eventID == "" {
		eventID = e.newID()
	}

	ts := e.now()
	if raw.Timestamp != "" {
		parsed, err := parseTimestamp(raw.Timestamp)
		if err != nil {
			return models.Event{}, &ValidationError{Index: idx, Field: "timestamp", Reason: "must be RFC3339"}
		}
		ts = parsed
	}

	props := raw.Properties
	if props == nil {
		props = map[string]any{}
	}

	return models.Event{
		EventID:        eventID,
		UserID:         userID,
		EventName:      eventName,
		Properties:     props,
		Timestamp:      ts,
		SessionID:      strings.TrimSpace(raw.SessionID),
		OrganizationID: tc.OrganizationID,
		ProjectID:      tc.ProjectID,
		UserAgent:      md.UserAgent,
		IPAddress:      md.IPAddress,
	}, nil
}
