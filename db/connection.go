// Package db opens the SQLite database backing the durable jobs registry and
// applies its embedded schema migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/longrun/errors"
	logs "github.com/teranos/longrun/logger"
)

// SQLiteBusyTimeoutMS is how long a connection waits on a locked database.
// Separate CLI invocations share the registry file, so writers may briefly contend.
const SQLiteBusyTimeoutMS = 5000

// Open opens the SQLite file at path in WAL mode with a busy timeout, so
// concurrent CLI invocations can share it. logger may be nil.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger = logs.AddDBSymbol(logger)
		logger.Debugw("Opening database", "path", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode = WAL", "enable WAL mode"},
		{"PRAGMA foreign_keys = ON", "enable foreign keys"},
		{fmt.Sprintf("PRAGMA busy_timeout = %d", SQLiteBusyTimeoutMS), "set busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, errors.WithHintf(errors.Wrapf(err, "failed to %s", p.what),
				"check that the directory of %s exists and is writable, or set database.path", path)
		}
	}

	if logger != nil {
		logger.Infow("Database opened",
			"path", path,
			"busy_timeout_ms", SQLiteBusyTimeoutMS,
		)
	}

	return db, nil
}

// OpenWithMigrations opens the database and brings its schema up to date.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "migrate %s", path)
	}

	return db, nil
}
