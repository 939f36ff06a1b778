package store

import (
	"context"

	"github.com/getpup/tablemig"
)

// LedgerStore provides persistence for the migration ledger.
// Each row records one migration-apply attempt. Rows are never deleted;
// the most recent row of a version determines its effective state.
type LedgerStore interface {
	// EnsureTable creates the ledger table if it does not exist.
	EnsureTable(ctx context.Context) error

	// Insert records a new attempt for version with the given status.
	// Returns the stored entry with its assigned ID.
	Insert(ctx context.Context, version string, status tablemig.Status) (tablemig.LedgerEntry, error)

	// UpdateStatus finalizes an attempt. note is stored as given (nil clears it).
	// Returns ErrEntryNotFound if no entry has the ID.
	UpdateStatus(ctx context.Context, id int64, status tablemig.Status, note *string) error

	// List returns every entry ordered by ID ascending.
	// Returns an empty slice if the ledger is empty.
	List(ctx context.Context) ([]tablemig.LedgerEntry, error)

	// Recent returns at most limit entries ordered by ID descending.
	// A limit of zero or less returns every entry.
	Recent(ctx context.Context, limit int) ([]tablemig.LedgerEntry, error)
}
