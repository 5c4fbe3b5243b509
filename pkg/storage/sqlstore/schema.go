package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// schema is written for Postgres; sqlite rewrites the key columns
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		last_login TIMESTAMP NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		repo TEXT NOT NULL DEFAULT '',
		repo_type TEXT NOT NULL DEFAULT 'git',
		default_version TEXT NOT NULL DEFAULT 'latest',
		default_branch TEXT NOT NULL DEFAULT '',
		documentation_type TEXT NOT NULL DEFAULT 'sphinx',
		project_url TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		skip BOOLEAN NOT NULL DEFAULT FALSE,
		featured BOOLEAN NOT NULL DEFAULT FALSE,
		use_virtualenv BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS project_users (
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS versions (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		slug TEXT NOT NULL,
		identifier TEXT NOT NULL DEFAULT '',
		verbose_name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT FALSE,
		built BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (project_id, slug)
	)`,
	`CREATE TABLE IF NOT EXISTS builds (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		version_id BIGINT NULL REFERENCES versions(id) ON DELETE SET NULL,
		type TEXT NOT NULL DEFAULT 'html',
		state TEXT NOT NULL DEFAULT 'finished',
		success BOOLEAN NOT NULL DEFAULT TRUE,
		setup TEXT NOT NULL DEFAULT '',
		setup_error TEXT NOT NULL DEFAULT '',
		output TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		date TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS imported_files (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		version_id BIGINT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL,
		md5 TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_versions_project ON versions (project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_builds_project ON builds (project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_imported_files_project ON imported_files (project_id)`,
}

// postgres full-text indexes backing SearchProjects and SearchFiles
var postgresSearchIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_projects_fts ON projects USING GIN (to_tsvector('english', name || ' ' || description))`,
	`CREATE INDEX IF NOT EXISTS idx_imported_files_fts ON imported_files USING GIN (to_tsvector('english', name || ' ' || content))`,
}

// Statements returns the DDL for the dialect
func (d Dialect) Statements() []string {
	stmts := make([]string, 0, len(schema)+len(postgresSearchIndexes))
	for _, stmt := range schema {
		if d == SQLite {
			stmt = strings.Replace(stmt, "BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT", 1)
		}
		stmts = append(stmts, stmt)
	}
	if d == Postgres {
		stmts = append(stmts, postgresSearchIndexes...)
	}
	return stmts
}

// Migrate creates any missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range s.dialect.Statements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return tx.Commit()
}
