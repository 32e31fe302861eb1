package registry

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/teranos/longrun/db"
	"github.com/teranos/longrun/errors"
)

// SQLiteBackend stores records in the job_registry table created by db.Migrate.
// Every call is a single statement, so SQLite's own locking makes it atomic.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend creates a registry over an already migrated database.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (s *SQLiteBackend) Name() string { return BackendSQLite }

// Put upserts the record for id.
func (s *SQLiteBackend) Put(ctx context.Context, id uuid.UUID, data []byte) error {
	query := `
		INSERT INTO job_registry (id, record)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record = excluded.record,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, id.String(), data); err != nil {
		return sqlError(err, "failed to put job %s", id)
	}
	return nil
}

// Get retrieves the record for id.
func (s *SQLiteBackend) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM job_registry WHERE id = ?`, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("job %s", id)
	}
	if err != nil {
		return nil, sqlError(err, "failed to get job %s", id)
	}
	return data, nil
}

// Remove deletes the record for id.
func (s *SQLiteBackend) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_registry WHERE id = ?`, id.String()); err != nil {
		return sqlError(err, "failed to remove job %s", id)
	}
	return nil
}

// Keys lists stored identities, oldest registration first.
func (s *SQLiteBackend) Keys(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM job_registry ORDER BY created_at, id`)
	if err != nil {
		return nil, sqlError(err, "failed to list jobs")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan job id")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, errors.ErrMalformedRecord), "registry key %q", raw)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate jobs")
	}
	return ids, nil
}

func sqlError(err error, format string, args ...interface{}) error {
	err = errors.Wrapf(err, format, args...)
	if db.IsDatabaseClosed(err) {
		return errors.WithHint(err, "the registry database was closed; reopen it before querying jobs")
	}
	return err
}
