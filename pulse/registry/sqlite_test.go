package registry

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/longrun/errors"
)

// --- Sqlmock Tests ---
// Verify statement shape and error wrapping without a real database

func TestSQLiteBackendPut_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewSQLiteBackend(db)
	id := uuid.New()

	mock.ExpectExec(`INSERT INTO job_registry .* ON CONFLICT\(id\) DO UPDATE`).
		WithArgs(id.String(), []byte("rec\x00")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, b.Put(context.Background(), id, []byte("rec\x00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackendPutFailure_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewSQLiteBackend(db)
	id := uuid.New()

	mock.ExpectExec(`INSERT INTO job_registry`).
		WillReturnError(errors.New("database is locked"))

	err = b.Put(context.Background(), id, []byte("rec"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), id.String())
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackendGet_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewSQLiteBackend(db)
	ctx := context.Background()

	found, missing, broken := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT record FROM job_registry WHERE id = \?`).
		WithArgs(found.String()).
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow([]byte("rec")))
	mock.ExpectQuery(`SELECT record FROM job_registry`).
		WithArgs(missing.String()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT record FROM job_registry`).
		WithArgs(broken.String()).
		WillReturnError(errors.New("disk I/O error"))

	data, err := b.Get(ctx, found)
	require.NoError(t, err)
	assert.Equal(t, []byte("rec"), data)

	_, err = b.Get(ctx, missing)
	assert.True(t, errors.IsNotFoundError(err))

	_, err = b.Get(ctx, broken)
	require.Error(t, err)
	assert.False(t, errors.IsNotFoundError(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackendRemove_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewSQLiteBackend(db)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM job_registry WHERE id = \?`).
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM job_registry`).
		WithArgs(id.String()).
		WillReturnError(sql.ErrConnDone)

	require.NoError(t, b.Remove(context.Background(), id))
	assert.Error(t, b.Remove(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackendKeys_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewSQLiteBackend(db)
	a, c := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id FROM job_registry ORDER BY created_at, id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(a.String()).AddRow(c.String()))
	mock.ExpectQuery(`SELECT id FROM job_registry`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("garbage"))
	mock.ExpectQuery(`SELECT id FROM job_registry`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(a.String()).RowError(0, errors.New("row read failed")))

	ids, err := b.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, c}, ids)

	_, err = b.Keys(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedRecord))

	_, err = b.Keys(context.Background())
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackendClosedDatabase_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	require.NoError(t, db.Close())

	b := NewSQLiteBackend(db)
	err = b.Put(context.Background(), uuid.New(), []byte("rec\x00"))
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "registry database was closed")

	_, err = b.Keys(context.Background())
	assert.Contains(t, errors.FlattenHints(err), "registry database was closed")
}
