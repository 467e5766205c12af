package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	ierr "github.com/rentwise/rentwise/internal/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate applies every embedded migration that has not run yet, each in its
// own transaction. It returns the versions applied by this call.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, TranslateError(err, "Failed to prepare schema_migrations")
	}

	versions, err := MigrationVersions()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, version := range versions {
		name := "migrations/" + version + ".sql"

		err := db.WithTx(ctx, func(ctx context.Context) error {
			q := db.Querier(ctx)

			var exists bool
			if err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version); err != nil {
				return TranslateError(err, "Failed to read schema_migrations")
			}
			if exists {
				return nil
			}

			body, err := migrationFiles.ReadFile(name)
			if err != nil {
				return ierr.WithError(err).Mark(ierr.ErrSystem)
			}
			if _, err := q.ExecContext(ctx, string(body)); err != nil {
				return TranslateError(err, "Failed to apply migration "+version)
			}
			if _, err := q.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
				return TranslateError(err, "Failed to record migration "+version)
			}

			applied = append(applied, version)
			db.logger.Infow("applied migration", "version", version)
			return nil
		})
		if err != nil {
			return applied, err
		}
	}
	return applied, nil
}

// MigrationVersions lists the embedded migrations in the order they apply
func MigrationVersions() ([]string, error) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	sort.Strings(names)

	versions := make([]string, 0, len(names))
	for _, name := range names {
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql"))
	}
	return versions, nil
}
