package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/pkg/migrations"
	"github.com/getpup/tablemig/store"
)

// Store is a database/sql implementation of LedgerStore for PostgreSQL,
// MySQL/MariaDB and SQLite.
type Store struct {
	db      *sql.DB
	table   string
	dialect tablemig.Dialect
}

// Compile-time check that Store implements LedgerStore.
var _ store.LedgerStore = (*Store)(nil)

// New creates a new store with the default table name.
func New(db *sql.DB, dialect tablemig.Dialect) (*Store, error) {
	config := DefaultTableConfig()
	config.Dialect = dialect
	return NewWithConfig(db, config)
}

// NewWithConfig creates a new store with a custom table name.
// The table name is interpolated into queries and must be a plain identifier.
func NewWithConfig(db *sql.DB, config TableConfig) (*Store, error) {
	if err := migrations.ValidateIdentifier(config.Table, "Table"); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := tablemig.ParseDialect(string(config.Dialect)); err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		table:   config.Table,
		dialect: config.Dialect,
	}, nil
}

// placeholder returns the n-th (1-based) bind parameter for the dialect.
func (s *Store) placeholder(n int) string {
	if s.dialect == tablemig.DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// EnsureTable creates the ledger table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	ddl, err := MigrationUp(TableConfig{Table: s.table, Dialect: s.dialect})
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// Insert records a new attempt for version.
func (s *Store) Insert(ctx context.Context, version string, status tablemig.Status) (tablemig.LedgerEntry, error) {
	entry := tablemig.LedgerEntry{
		Version:   version,
		Status:    status,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	query := fmt.Sprintf(`INSERT INTO %s (version, status, created_at) VALUES (%s, %s, %s)`,
		s.table, s.placeholder(1), s.placeholder(2), s.placeholder(3))

	if s.dialect == tablemig.DialectPostgres {
		err := s.db.QueryRowContext(ctx, query+" RETURNING id", version, status.String(), entry.CreatedAt).Scan(&entry.ID)
		if err != nil {
			return tablemig.LedgerEntry{}, fmt.Errorf("failed to insert ledger entry: %w", err)
		}
		return entry, nil
	}

	result, err := s.db.ExecContext(ctx, query, version, status.String(), entry.CreatedAt)
	if err != nil {
		return tablemig.LedgerEntry{}, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	entry.ID, err = result.LastInsertId()
	if err != nil {
		return tablemig.LedgerEntry{}, fmt.Errorf("failed to get ledger entry id: %w", err)
	}

	return entry, nil
}

// UpdateStatus finalizes an attempt.
// Returns store.ErrEntryNotFound if no entry has the ID.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status tablemig.Status, note *string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = %s, note = %s WHERE id = %s`,
		s.table, s.placeholder(1), s.placeholder(2), s.placeholder(3))

	var n sql.NullString
	if note != nil {
		n = sql.NullString{String: *note, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, status.String(), n, id)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrEntryNotFound
	}

	return nil
}

// List returns every entry ordered by ID ascending.
func (s *Store) List(ctx context.Context) ([]tablemig.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT id, version, status, note, created_at FROM %s ORDER BY id ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns at most limit entries ordered by ID descending.
func (s *Store) Recent(ctx context.Context, limit int) ([]tablemig.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT id, version, status, note, created_at FROM %s ORDER BY id DESC`, s.table)

	var args []any
	if limit > 0 {
		query += " LIMIT " + s.placeholder(1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]tablemig.LedgerEntry, error) {
	entries := make([]tablemig.LedgerEntry, 0)
	for rows.Next() {
		var (
			entry  tablemig.LedgerEntry
			status string
			note   sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Version, &status, &note, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		parsed, err := tablemig.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", entry.ID, err)
		}
		entry.Status = parsed
		if note.Valid {
			n := note.String
			entry.Note = &n
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}
