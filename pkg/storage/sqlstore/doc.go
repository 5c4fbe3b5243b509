// Package sqlstore implements api.Storage on database/sql.
//
// Postgres (lib/pq) is the production backend; SQLite (go-sqlite3) serves
// development and tests. Queries are written with ? placeholders and
// rebound per dialect. Migrate creates the schema idempotently.
package sqlstore
