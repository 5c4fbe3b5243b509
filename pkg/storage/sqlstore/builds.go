package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/docsapi/pkg/api"
)

const (
	buildColumns = `b.id, b.project_id, p.slug, b.version_id, b.type, b.state, b.success,
	b.setup, b.setup_error, b.output, b.error, b.date`
	buildFrom = `builds b JOIN projects p ON p.id = b.project_id`
)

func scanBuild(row scanner) (*api.Build, error) {
	var b api.Build
	var versionID sql.NullInt64
	err := row.Scan(&b.ID, &b.ProjectID, &b.ProjectSlug, &versionID, &b.Type, &b.State, &b.Success,
		&b.Setup, &b.SetupError, &b.Output, &b.Error, &b.Date)
	if err != nil {
		return nil, err
	}
	if versionID.Valid {
		id := versionID.Int64
		b.VersionID = &id
	}
	return &b, nil
}

// CreateBuild records a build of an existing project
func (s *Store) CreateBuild(ctx context.Context, build *api.Build) error {
	slug, err := s.projectSlug(ctx, build.ProjectID)
	if err != nil {
		return err
	}
	if build.Date.IsZero() {
		build.Date = time.Now().UTC()
	}

	query := s.dialect.Rebind(`
		INSERT INTO builds (project_id, version_id, type, state, success, setup, setup_error, output, error, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err = s.db.QueryRowContext(ctx, query,
		build.ProjectID, nullInt64(build.VersionID), build.Type, build.State, build.Success,
		build.Setup, build.SetupError, build.Output, build.Error, build.Date,
	).Scan(&build.ID)
	if err != nil {
		return fmt.Errorf("failed to create build: %w", err)
	}
	build.ProjectSlug = slug
	return nil
}

// GetBuild looks a build up by ID
func (s *Store) GetBuild(ctx context.Context, id int64) (*api.Build, error) {
	query := s.dialect.Rebind(`SELECT ` + buildColumns + ` FROM ` + buildFrom + ` WHERE b.id = ?`)
	build, err := scanBuild(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build %d: %w", id, api.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}
	return build, nil
}

// ListBuilds lists builds ordered by ID
func (s *Store) ListBuilds(ctx context.Context, filter api.BuildFilter, page api.Page) ([]*api.Build, int64, error) {
	w := &where{}
	if filter.ProjectSlug != "" {
		w.add("p.slug = ?", filter.ProjectSlug)
	}
	builds, total, err := selectPage(ctx, s, buildColumns, buildFrom, "b.id", w, page, scanBuild)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, total, nil
}
