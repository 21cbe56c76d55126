package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

const orgColumns = `id, name, email, website, created_at, updated_at`
const projectColumns = `id, name, description, organization_id, api_key, created_at, updated_at`

func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO organizations (id, name, email, website, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, org.ID, org.Name, org.Email, nullIfEmpty(org.Website), formatTime(now), formatTime(now))
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
	query := fmt.Sprintf("SELECT %s FROM organizations WHERE %s = ?", orgColumns, column)

	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

// ListOrganizations returns one page plus the total match count. LIKE
// in SQLite is case-insensitive for ASCII, matching the postgres
// adapter's ILIKE.
func (s *Store) ListOrganizations(ctx context.Context, search string, skip, limit int) ([]models.Organization, int64, error) {
	where := ""
	var args []any
	if search != "" {
		where = " WHERE name LIKE ? OR email LIKE ? OR website LIKE ?"
		pat := "%" + search + "%"
		args = append(args, pat, pat, pat)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM organizations%s ORDER BY created_at DESC LIMIT ? OFFSET ?", orgColumns, where)
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	UPDATE organizations SET name = ?, email = ?, website = ?, updated_at = ?
	WHERE id = ?
	RETURNING %s
	`, orgColumns)

	updated, err := scanOrganization(s.db.QueryRowContext(ctx, query,
		org.Name, org.Email, nullIfEmpty(org.Website), formatTime(time.Now().UTC()), org.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("update organization: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) (models.Organization, error) {
	query := fmt.Sprintf("DELETE FROM organizations WHERE id = ? RETURNING %s", orgColumns)

	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("delete organization: %w", err)
	}
	return org, nil
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO projects (id, name, description, organization_id, api_key, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.OrganizationID, p.APIKey, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	return s.getProject(ctx, "id", id)
}

func (s *Store) GetProjectByAPIKey(ctx context.Context, apiKey string) (models.Project, error) {
	return s.getProject(ctx, "api_key", apiKey)
}

func (s *Store) getProject(ctx context.Context, column, value string) (models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects WHERE %s = ?", projectColumns, column)

	p, err := scanProject(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, search string, skip, limit int) ([]models.Project, int64, error) {
	where := ""
	var args []any
	if search != "" {
		where = " WHERE name LIKE ? OR description LIKE ?"
		pat := "%" + search + "%"
		args = append(args, pat, pat)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM projects%s ORDER BY created_at DESC LIMIT ? OFFSET ?", projectColumns, where)
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	UPDATE projects SET name = ?, description = ?, organization_id = ?, updated_at = ?
	WHERE id = ?
	RETURNING %s
	`, projectColumns)

	updated, err := scanProject(s.db.QueryRowContext(ctx, query,
		p.Name, nullIfEmpty(p.Description), p.OrganizationID, formatTime(time.Now().UTC()), p.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) (models.Project, error) {
	query := fmt.Sprintf("DELETE FROM projects WHERE id = ? RETURNING %s", projectColumns)

	p, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("delete project: %w", err)
	}
	return p, nil
}

func (s *Store) ResetProjectAPIKey(ctx context.Context, id, apiKey string) (models.Project, error) {
	query := fmt.Sprintf(`
	UPDATE projects SET api_key = ?, updated_at = ?
	WHERE id = ?
	RETURNING %s
	`, projectColumns)

	p, err := scanProject(s.db.QueryRowContext(ctx, query, apiKey, formatTime(time.Now().UTC()), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("reset project api key: %w", err)
	}
	return p, nil
}

func scanOrganization(row scanner) (models.Organization, error) {
	var org models.Organization
	var website *string
	var createdAt, updatedAt string
	err := row.Scan(&org.ID, &org.Name, &org.Email, &website, &createdAt, &updatedAt)
	if err != nil {
		return models.Organization{}, err
	}
	if org.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Organization{}, err
	}
	if org.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Organization{}, err
	}
	org.Website = orEmpty(website)
	return org, nil
}

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	var description *string
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &description, &p.OrganizationID, &p.APIKey, &createdAt, &updatedAt)
	if err != nil {
		return models.Project{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Project{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Project{}, err
	}
	p.Description = orEmpty(description)
	return p, nil
}
