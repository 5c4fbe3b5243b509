package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/docsapi/pkg/api"
)

const projectColumns = `p.id, p.slug, p.name, p.description, p.repo, p.repo_type, p.default_version,
	p.default_branch, p.documentation_type, p.project_url, p.path, p.skip, p.featured,
	p.use_virtualenv, p.created_at, p.updated_at`

func scanProject(row scanner) (*api.Project, error) {
	var p api.Project
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Repo, &p.RepoType, &p.DefaultVersion,
		&p.DefaultBranch, &p.DocumentationType, &p.ProjectURL, &p.Path, &p.Skip, &p.Featured,
		&p.UseVirtualenv, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Users = []string{}
	return &p, nil
}

// CreateProject inserts a project and links its users. Unknown usernames
// are ignored.
func (s *Store) CreateProject(ctx context.Context, project *api.Project) error {
	ctx, span := tracer.Start(ctx, "sqlstore.CreateProject")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := s.dialect.Rebind(`
		INSERT INTO projects (slug, name, description, repo, repo_type, default_version,
			default_branch, documentation_type, project_url, path, skip, featured,
			use_virtualenv, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err = tx.QueryRowContext(ctx, query,
		project.Slug, project.Name, project.Description, project.Repo, project.RepoType,
		project.DefaultVersion, project.DefaultBranch, project.DocumentationType,
		project.ProjectURL, project.Path, project.Skip, project.Featured,
		project.UseVirtualenv, now, now,
	).Scan(&id)
	if err != nil {
		return insertError("project "+project.Slug, err)
	}

	link := s.dialect.Rebind(`
		INSERT INTO project_users (project_id, user_id)
		SELECT CAST(? AS BIGINT), id FROM users WHERE username = ?`)
	for _, username := range project.Users {
		if _, err := tx.ExecContext(ctx, link, id, username); err != nil {
			return fmt.Errorf("failed to link user %s: %w", username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	project.ID = id
	project.CreatedAt, project.UpdatedAt = now, now
	return nil
}

func (s *Store) getProject(ctx context.Context, clause string, arg interface{}, desc string) (*api.Project, error) {
	query := s.dialect.Rebind(`SELECT ` + projectColumns + ` FROM projects p WHERE ` + clause)
	project, err := scanProject(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", desc, api.ErrProjectNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if err := s.loadUsers(ctx, []*api.Project{project}); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject looks a project up by slug
func (s *Store) GetProject(ctx context.Context, slug string) (*api.Project, error) {
	return s.getProject(ctx, "p.slug = ?", slug, "slug "+slug)
}

// GetProjectByID looks a project up by primary key
func (s *Store) GetProjectByID(ctx context.Context, id int64) (*api.Project, error) {
	return s.getProject(ctx, "p.id = ?", id, fmt.Sprintf("id %d", id))
}

// ListProjects lists projects ordered by ID
func (s *Store) ListProjects(ctx context.Context, filter api.ProjectFilter, page api.Page) ([]*api.Project, int64, error) {
	w := &where{}
	if filter.Slug != "" {
		w.add("p.slug = ?", filter.Slug)
	}
	if filter.Username != "" {
		w.add(`p.id IN (SELECT pu.project_id FROM project_users pu
			JOIN users u ON u.id = pu.user_id WHERE u.username = ?)`, filter.Username)
	}
	return s.listProjects(ctx, w, page)
}

func (s *Store) listProjects(ctx context.Context, w *where, page api.Page) ([]*api.Project, int64, error) {
	projects, total, err := selectPage(ctx, s, projectColumns, "projects p", "p.id", w, page, scanProject)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	if err := s.loadUsers(ctx, projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// loadUsers fills in the usernames of each project
func (s *Store) loadUsers(ctx context.Context, projects []*api.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[int64]*api.Project, len(projects))
	args := make([]interface{}, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		args = append(args, p.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := s.dialect.Rebind(`
		SELECT pu.project_id, u.username
		FROM project_users pu JOIN users u ON u.id = pu.user_id
		WHERE pu.project_id IN (` + placeholders + `)
		ORDER BY u.username`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load project users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID int64
		var username string
		if err := rows.Scan(&projectID, &username); err != nil {
			return fmt.Errorf("failed to scan project user: %w", err)
		}
		if p, ok := byID[projectID]; ok {
			p.Users = append(p.Users, username)
		}
	}
	return rows.Err()
}

// UpdateProject saves every mutable project field. The slug and users are
// left unchanged.
func (s *Store) UpdateProject(ctx context.Context, project *api.Project) error {
	now := time.Now().UTC()
	query := s.dialect.Rebind(`
		UPDATE projects SET name = ?, description = ?, repo = ?, repo_type = ?,
			default_version = ?, default_branch = ?, documentation_type = ?,
			project_url = ?, path = ?, skip = ?, featured = ?, use_virtualenv = ?,
			updated_at = ?
		WHERE id = ?`)

	res, err := s.db.ExecContext(ctx, query,
		project.Name, project.Description, project.Repo, project.RepoType,
		project.DefaultVersion, project.DefaultBranch, project.DocumentationType,
		project.ProjectURL, project.Path, project.Skip, project.Featured,
		project.UseVirtualenv, now, project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("id %d: %w", project.ID, api.ErrProjectNotFound)
	}
	project.UpdatedAt = now
	return nil
}
