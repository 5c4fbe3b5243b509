package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/docsapi/pkg/api"
)

const (
	versionColumns = `v.id, v.project_id, p.slug, v.slug, v.identifier, v.verbose_name, v.active, v.built`
	versionFrom    = `versions v JOIN projects p ON p.id = v.project_id`
)

func scanVersion(row scanner) (*api.Version, error) {
	var v api.Version
	if err := row.Scan(&v.ID, &v.ProjectID, &v.ProjectSlug, &v.Slug, &v.Identifier, &v.VerboseName, &v.Active, &v.Built); err != nil {
		return nil, err
	}
	return &v, nil
}

// projectSlug resolves a project ID, failing with ErrProjectNotFound
func (s *Store) projectSlug(ctx context.Context, id int64) (string, error) {
	var slug string
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT slug FROM projects WHERE id = ?`), id).Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("id %d: %w", id, api.ErrProjectNotFound)
	}
	return slug, err
}

// CreateVersion inserts a version of an existing project
func (s *Store) CreateVersion(ctx context.Context, version *api.Version) error {
	slug, err := s.projectSlug(ctx, version.ProjectID)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`
		INSERT INTO versions (project_id, slug, identifier, verbose_name, active, built)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err = s.db.QueryRowContext(ctx, query,
		version.ProjectID, version.Slug, version.Identifier, version.VerboseName, version.Active, version.Built,
	).Scan(&version.ID)
	if err != nil {
		return insertError("version "+slug+"/"+version.Slug, err)
	}
	version.ProjectSlug = slug
	return nil
}

func (s *Store) getVersion(ctx context.Context, clause string, args []interface{}, desc string) (*api.Version, error) {
	query := s.dialect.Rebind(`SELECT ` + versionColumns + ` FROM ` + versionFrom + ` WHERE ` + clause)
	version, err := scanVersion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", desc, api.ErrVersionNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// GetVersion looks a version up by project slug and version slug
func (s *Store) GetVersion(ctx context.Context, projectSlug, slug string) (*api.Version, error) {
	return s.getVersion(ctx, "p.slug = ? AND v.slug = ?", []interface{}{projectSlug, slug}, projectSlug+"/"+slug)
}

// GetVersionByID looks a version up by primary key
func (s *Store) GetVersionByID(ctx context.Context, id int64) (*api.Version, error) {
	return s.getVersion(ctx, "v.id = ?", []interface{}{id}, fmt.Sprintf("id %d", id))
}

// ListVersions lists versions ordered by ID
func (s *Store) ListVersions(ctx context.Context, filter api.VersionFilter, page api.Page) ([]*api.Version, int64, error) {
	w := &where{}
	if filter.ProjectSlug != "" {
		w.add("p.slug = ?", filter.ProjectSlug)
	}
	if filter.Slug != "" {
		w.add("v.slug = ?", filter.Slug)
	}
	if filter.Active != nil {
		w.add("v.active = ?", *filter.Active)
	}
	versions, total, err := selectPage(ctx, s, versionColumns, versionFrom, "v.id", w, page, scanVersion)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, total, nil
}

// UpdateVersion saves a version's mutable fields
func (s *Store) UpdateVersion(ctx context.Context, version *api.Version) error {
	query := s.dialect.Rebind(`
		UPDATE versions SET slug = ?, identifier = ?, verbose_name = ?, active = ?, built = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		version.Slug, version.Identifier, version.VerboseName, version.Active, version.Built, version.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("version %s: %w", version.Slug, api.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update version: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("id %d: %w", version.ID, api.ErrVersionNotFound)
	}
	return nil
}
