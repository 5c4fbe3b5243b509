package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/docsapi/pkg/api"
)

const (
	fileColumns = `f.id, f.project_id, p.slug, f.version_id, v.slug, f.name, f.slug, f.path, f.md5, f.content`
	fileFrom    = `imported_files f JOIN projects p ON p.id = f.project_id JOIN versions v ON v.id = f.version_id`
)

func scanFile(row scanner) (*api.ImportedFile, error) {
	var f api.ImportedFile
	err := row.Scan(&f.ID, &f.ProjectID, &f.ProjectSlug, &f.VersionID, &f.VersionSlug,
		&f.Name, &f.Slug, &f.Path, &f.MD5, &f.Content)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFile records an imported file; the project comes from its version
func (s *Store) CreateFile(ctx context.Context, file *api.ImportedFile) error {
	version, err := s.GetVersionByID(ctx, file.VersionID)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`
		INSERT INTO imported_files (project_id, version_id, name, slug, path, md5, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err = s.db.QueryRowContext(ctx, query,
		version.ProjectID, version.ID, file.Name, file.Slug, file.Path, file.MD5, file.Content,
	).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	file.ProjectID = version.ProjectID
	file.ProjectSlug = version.ProjectSlug
	file.VersionSlug = version.Slug
	return nil
}

// GetFile looks an imported file up by ID
func (s *Store) GetFile(ctx context.Context, id int64) (*api.ImportedFile, error) {
	query := s.dialect.Rebind(`SELECT ` + fileColumns + ` FROM ` + fileFrom + ` WHERE f.id = ?`)
	file, err := scanFile(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %d: %w", id, api.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// ListFiles lists imported files ordered by ID
func (s *Store) ListFiles(ctx context.Context, filter api.FileFilter, page api.Page) ([]*api.ImportedFile, int64, error) {
	w := &where{}
	if filter.ProjectSlug != "" {
		w.add("p.slug = ?", filter.ProjectSlug)
	}
	files, total, err := selectPage(ctx, s, fileColumns, fileFrom, "f.id", w, page, scanFile)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	return files, total, nil
}
