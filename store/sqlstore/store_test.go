package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/store"
)

func newMock(t *testing.T, dialect tablemig.Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db, dialect)
	require.NoError(t, err)
	return s, mock
}

func TestNewWithConfig(t *testing.T) {
	t.Run("default table name", func(t *testing.T) {
		s, err := New(nil, tablemig.DialectSQLite)
		require.NoError(t, err)
		assert.Equal(t, "migrations", s.table)
		assert.Equal(t, tablemig.DialectSQLite, s.dialect)
	})

	t.Run("custom table name", func(t *testing.T) {
		s, err := NewWithConfig(nil, TableConfig{Table: "schema_ledger", Dialect: tablemig.DialectMySQL})
		require.NoError(t, err)
		assert.Equal(t, "schema_ledger", s.table)
	})

	t.Run("unsafe table name", func(t *testing.T) {
		_, err := NewWithConfig(nil, TableConfig{Table: "x; DROP TABLE users", Dialect: tablemig.DialectPostgres})
		assert.Error(t, err)
	})

	t.Run("unsupported dialect", func(t *testing.T) {
		_, err := NewWithConfig(nil, TableConfig{Table: "migrations", Dialect: "oracle"})
		assert.ErrorIs(t, err, tablemig.ErrUnsupportedDialect)
	})
}

func TestMigrationUp(t *testing.T) {
	for _, d := range tablemig.Dialects {
		t.Run(string(d), func(t *testing.T) {
			ddl, err := MigrationUp(TableConfig{Table: "ledger", Dialect: d})
			require.NoError(t, err)
			assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS ledger")
			for _, col := range []string{"id ", "version ", "status ", "note ", "created_at "} {
				assert.Contains(t, ddl, col)
			}
		})
	}

	_, err := MigrationUp(TableConfig{Table: "ledger", Dialect: "oracle"})
	assert.ErrorIs(t, err, tablemig.ErrUnsupportedDialect)

	assert.Equal(t, "DROP TABLE IF EXISTS ledger", MigrationDown(TableConfig{Table: "ledger"}))
}

func TestEnsureTable(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectPostgres)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS migrations")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureTable(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Postgres(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectPostgres)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO migrations (version, status, created_at) VALUES ($1, $2, $3) RETURNING id")).
		WithArgs("1.0.0", "pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	entry, err := s.Insert(context.Background(), "1.0.0", tablemig.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, "1.0.0", entry.Version)
	assert.Equal(t, tablemig.StatusPending, entry.Status)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_MySQL(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectMySQL)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO migrations (version, status, created_at) VALUES (?, ?, ?)")).
		WithArgs("1.1.0", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	entry, err := s.Insert(context.Background(), "1.1.0", tablemig.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(12), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Error(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectSQLite)
	dbErr := errors.New("database is locked")
	mock.ExpectExec("INSERT INTO migrations").WillReturnError(dbErr)

	_, err := s.Insert(context.Background(), "1.0.0", tablemig.StatusPending)
	assert.ErrorIs(t, err, dbErr)
	assert.ErrorContains(t, err, "failed to insert ledger entry")
}

func TestUpdateStatus(t *testing.T) {
	t.Run("with note", func(t *testing.T) {
		s, mock := newMock(t, tablemig.DialectPostgres)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE migrations SET status = $1, note = $2 WHERE id = $3")).
			WithArgs("error", "boom", int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		note := "boom"
		require.NoError(t, s.UpdateStatus(context.Background(), 3, tablemig.StatusError, &note))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without note", func(t *testing.T) {
		s, mock := newMock(t, tablemig.DialectSQLite)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE migrations SET status = ?, note = ? WHERE id = ?")).
			WithArgs("ok", nil, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateStatus(context.Background(), 3, tablemig.StatusOK, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing entry", func(t *testing.T) {
		s, mock := newMock(t, tablemig.DialectPostgres)
		mock.ExpectExec("UPDATE migrations").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateStatus(context.Background(), 99, tablemig.StatusOK, nil)
		assert.ErrorIs(t, err, store.ErrEntryNotFound)
	})
}

func TestList(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectPostgres)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, version, status, note, created_at FROM migrations ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "status", "note", "created_at"}).
			AddRow(1, "1.0.0", "ok", nil, now).
			AddRow(2, "1.1.0", "error", "syntax error", now))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, tablemig.LedgerEntry{ID: 1, Version: "1.0.0", Status: tablemig.StatusOK, CreatedAt: now}, entries[0])
	assert.Equal(t, tablemig.StatusError, entries[1].Status)
	require.NotNil(t, entries[1].Note)
	assert.Equal(t, "syntax error", *entries[1].Note)
}

func TestList_CorruptStatus(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectPostgres)
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "status", "note", "created_at"}).
			AddRow(1, "1.0.0", "done", nil, time.Now()))

	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, tablemig.ErrLedgerCorrupt)
}

func TestList_Empty(t *testing.T) {
	s, mock := newMock(t, tablemig.DialectSQLite)
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "status", "note", "created_at"}))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRecent(t *testing.T) {
	t.Run("limited", func(t *testing.T) {
		s, mock := newMock(t, tablemig.DialectPostgres)
		mock.ExpectQuery(regexp.QuoteMeta("FROM migrations ORDER BY id DESC LIMIT $1")).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "version", "status", "note", "created_at"}).
				AddRow(5, "1.2.0", "ok", nil, time.Now()).
				AddRow(4, "1.1.0", "ok", nil, time.Now()))

		entries, err := s.Recent(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(5), entries[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unlimited", func(t *testing.T) {
		s, mock := newMock(t, tablemig.DialectMySQL)
		mock.ExpectQuery(regexp.QuoteMeta("FROM migrations ORDER BY id DESC") + "$").
			WithArgs().
			WillReturnRows(sqlmock.NewRows([]string{"id", "version", "status", "note", "created_at"}))

		_, err := s.Recent(context.Background(), 0)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		s, mock := newMock(t, tablemig.DialectMySQL)
		mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

		_, err := s.Recent(context.Background(), 2)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}
