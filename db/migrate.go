package db

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migration is one embedded schema change.
type Migration struct {
	Version string
	File    string
	Applied bool
}

// migrationFiles returns the embedded migration file names in apply order.
func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	// 000_create_schema_migrations.sql sorts first
	sort.Strings(files)
	return files, nil
}

func versionOf(filename string) string {
	return strings.SplitN(filename, "_", 2)[0]
}

// Migrate applies every embedded migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction together with its bookkeeping row.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	return MigrateContext(context.Background(), db, logger)
}

// MigrateContext is Migrate bounded by ctx.
func MigrateContext(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := 0
	for _, filename := range files {
		version := versionOf(filename)

		done, err := isApplied(ctx, db, version)
		if err != nil {
			return errors.Wrapf(err, "check %s", filename)
		}
		if done {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", filename,
					"version", version,
				)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(path.Join(migrationsDir, filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration",
				"migration", filename,
				"version", version,
			)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", filename)
		}

		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", filename)
		}

		// 000 creates the table, then records itself
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", filename)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", filename)
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"symbol", sym.DB,
			"total_migrations", len(files),
			"applied", applied,
		)
	}

	return nil
}

// isApplied reports whether version is recorded. A missing schema_migrations
// table means nothing has been applied yet.
func isApplied(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var tables int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&tables)
	if err != nil {
		return false, err
	}
	if tables == 0 {
		if version != "000" {
			return false, errors.Newf("schema_migrations table missing, but migration is not 000: %s", version)
		}
		return false, nil
	}

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	return exists, err
}

// Migrations lists the embedded migrations and whether each is applied.
func Migrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	files, err := migrationFiles()
	if err != nil {
		return nil, err
	}

	var tables int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&tables)
	if err != nil {
		return nil, errors.Wrap(err, "check schema_migrations")
	}

	out := make([]Migration, 0, len(files))
	for _, filename := range files {
		m := Migration{Version: versionOf(filename), File: filename}
		if tables > 0 {
			m.Applied, err = isApplied(ctx, db, m.Version)
			if err != nil {
				return nil, errors.Wrapf(err, "check %s", filename)
			}
		}
		out = append(out, m)
	}
	return out, nil
}
