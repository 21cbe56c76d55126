package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

const orgColumns = `id, name, email, website, created_at, updated_at`
const projectColumns = `id, name, description, organization_id, api_key, created_at, updated_at`

// CreateOrganization inserts a new organization and stamps its
// lifecycle timestamps.
func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations(id, name, email, website, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, org.ID, org.Name, org.Email, nullIfEmpty(org.Website), now, now)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	return s.getOrganization(ctx, "id", id)
}

func (s *Store) GetOrganizationByEmail(ctx context.Context, email string) (models.Organization, error) {
	return s.getOrganization(ctx, "email", email)
}

func (s *Store) getOrganization(ctx context.Context, column, value string) (models.Organization, error) {
	query := fmt.Sprintf("SELECT %s FROM organizations WHERE %s=$1", orgColumns, column)

	org, err := scanOrganization(s.pool.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

// ListOrganizations returns one page plus the total match count.
// search is a case-insensitive substring match on name/email/website.
func (s *Store) ListOrganizations(ctx context.Context, search string, skip, limit int) ([]models.Organization, int64, error) {
	var sb strings.Builder
	var args []any
	if search != "" {
		args = append(args, "%"+search+"%")
		sb.WriteString(" WHERE name ILIKE $1 OR email ILIKE $1 OR website ILIKE $1")
	}
	where := sb.String()

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM organizations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	args = append(args, limit, skip)
	query := fmt.Sprintf("SELECT %s FROM organizations%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orgColumns, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]models.Organization, 0, limit)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return orgs, total, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, org models.Organization) (models.Organization, error) {
	query := fmt.Sprintf(`
		UPDATE organizations SET name=$2, email=$3, website=$4, updated_at=$5
		WHERE id=$1
		RETURNING %s
	`, orgColumns)

	updated, err := scanOrganization(s.pool.QueryRow(ctx, query,
		org.ID, org.Name, org.Email, nullIfEmpty(org.Website), time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("update organization: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) (models.Organization, error) {
	query := fmt.Sprintf("DELETE FROM organizations WHERE id=$1 RETURNING %s", orgColumns)

	org, err := scanOrganization(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("delete organization: %w", err)
	}
	return org, nil
}

// CreateProject inserts a new project with its API key.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects(id, name, description, organization_id, api_key, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.OrganizationID, p.APIKey, now, now)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	return s.getProject(ctx, "id", id)
}

// GetProjectByAPIKey resolves a presented credential to its project.
// This is the lookup behind the tenant context resolver.
func (s *Store) GetProjectByAPIKey(ctx context.Context, apiKey string) (models.Project, error) {
	return s.getProject(ctx, "api_key", apiKey)
}

func (s *Store) getProject(ctx context.Context, column, value string) (models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects WHERE %s=$1", projectColumns, column)

	p, err := scanProject(s.pool.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, search string, skip, limit int) ([]models.Project, int64, error) {
	var sb strings.Builder
	var args []any
	if search != "" {
		args = append(args, "%"+search+"%")
		sb.WriteString(" WHERE name ILIKE $1 OR description ILIKE $1")
	}
	where := sb.String()

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	args = append(args, limit, skip)
	query := fmt.Sprintf("SELECT %s FROM projects%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		projectColumns, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0, limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return projects, total, nil
}

func (s *Store) UpdateProject(ctx context.Context, p models.Project) (models.Project, error) {
	query := fmt.Sprintf(`
		UPDATE projects SET name=$2, description=$3, organization_id=$4, updated_at=$5
		WHERE id=$1
		RETURNING %s
	`, projectColumns)

	updated, err := scanProject(s.pool.QueryRow(ctx, query,
		p.ID, p.Name, nullIfEmpty(p.Description), p.OrganizationID, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) (models.Project, error) {
	query := fmt.Sprintf("DELETE FROM projects WHERE id=$1 RETURNING %s", projectColumns)

	p, err := scanProject(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("delete project: %w", err)
	}
	return p, nil
}

// ResetProjectAPIKey replaces a project's API key. The old key stops
// resolving as soon as this commits.
func (s *Store) ResetProjectAPIKey(ctx context.Context, id, apiKey string) (models.Project, error) {
	query := fmt.Sprintf(`
		UPDATE projects SET api_key=$2, updated_at=$3
		WHERE id=$1
		RETURNING %s
	`, projectColumns)

	p, err := scanProject(s.pool.QueryRow(ctx, query, id, apiKey, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("reset project api key: %w", err)
	}
	return p, nil
}

func scanOrganization(row pgx.Row) (models.Organization, error) {
	var org models.Organization
	var website *string
	err := row.Scan(&org.ID, &org.Name, &org.Email, &website, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return models.Organization{}, err
	}
	org.Website = orEmpty(website)
	return org, nil
}

func scanProject(row pgx.Row) (models.Project, error) {
	var p models.Project
	var description *string
	err := row.Scan(&p.ID, &p.Name, &description, &p.OrganizationID, &p.APIKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}
	p.Description = orEmpty(description)
	return p, nil
}
