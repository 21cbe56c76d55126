package models

import "time"

// TenantContext is the resolved (organization, project) pair every core
// operation is scoped by. Produced by the API-key resolver, never by
// client payload.
type TenantContext struct {
	OrganizationID string
	ProjectID      string
}

// Resolved reports whether both scope identifiers are present.
func (tc TenantContext) Resolved() bool {
	return tc.OrganizationID != "" && tc.ProjectID != ""
}

// RequestMetadata carries transport-level attributes captured at
// ingestion time.
type RequestMetadata struct {
	UserAgent string
	IPAddress string
}

// Organization is the top-level ownership boundary. Email is unique.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is the unit events are ingested into, identified externally
// by its API key.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organization_id"`
	APIKey         string    `json:"api_key"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
