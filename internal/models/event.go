package models

import "time"

// Event is the stored, immutable event entity. organization_id and
// project_id are always stamped from the authenticated tenant context,
// never taken from the payload.
type Event struct {
	EventID        string         `json:"event_id"`
	UserID         string         `json:"user_id"`
	EventName      string         `json:"event_name"`
	Properties     map[string]any `json:"properties"`
	Timestamp      time.Time      `json:"timestamp"`
	SessionID      string         `json:"session_id,omitempty"`
	OrganizationID string         `json:"organization_id"`
	ProjectID      string         `json:"project_id"`
	UserAgent      string         `json:"user_agent,omitempty"`
	IPAddress      string         `json:"ip_address,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RawEvent is one untrusted record inside an ingestion batch.
// event_id is optional; best practice is to supply one so retries dedupe.
// timestamp is RFC3339; when absent it defaults to ingestion time.
type RawEvent struct {
	EventID    string         `json:"event_id,omitempty"`
	UserID     string         `json:"user_id"`
	EventName  string         `json:"event_name"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
}

// IngestRequest is the POST /events payload.
type IngestRequest struct {
	Events []RawEvent `json:"events"`
}

// IngestResult is the reconciled outcome of one batch write.
// Duplicates counts records dropped because their event_id already
// existed (idempotent no-ops, not errors).
type IngestResult struct {
	Ingested   int     `json:"ingested"`
	Total      int     `json:"total"`
	Duplicates int     `json:"duplicates,omitempty"`
	Events     []Event `json:"events,omitempty"`
}

// Pagination is the page metadata returned by GET /events.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
	TotalPages  int64 `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// EventPage is one page of filtered events plus pagination metadata.
type EventPage struct {
	TotalCount int64      `json:"total_count"`
	Events     []Event    `json:"events"`
	Pagination Pagination `json:"pagination"`
}

// EventStats is the tenant-scoped summary aggregate.
// LatestEvent/OldestEvent are null when the tenant has no events.
type EventStats struct {
	TotalEvents      int64      `json:"total_events"`
	UniqueUserCount  int64      `json:"unique_user_count"`
	UniqueEventCount int64      `json:"unique_event_count"`
	LatestEvent      *time.Time `json:"latest_event"`
	OldestEvent      *time.Time `json:"oldest_event"`
}
