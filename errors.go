package tablemig

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidVersion indicates a version string is not valid semver.
	// Generation and runs abort before any side effect.
	ErrInvalidVersion = errors.New("invalid semver version")

	// ErrInconsistentData indicates released, non-comment content was altered or removed.
	ErrInconsistentData = errors.New("inconsistent data")

	// ErrFileSystemConflict indicates the migrations directory is only partially
	// scaffolded, or that a file about to be created already exists.
	ErrFileSystemConflict = errors.New("file system conflict")

	// ErrAwaitingPending indicates the ledger holds an unresolved pending migration.
	// An operator must resolve it before further migrations run.
	ErrAwaitingPending = errors.New("awaiting pending migration")

	// ErrLedgerNotEmpty indicates a genesis version was requested for a database
	// that already has migration state.
	ErrLedgerNotEmpty = errors.New("migration state already exists")

	// ErrLedgerCorrupt indicates the ledger holds rows that cannot be interpreted.
	ErrLedgerCorrupt = errors.New("ledger is corrupted")

	// ErrCyclicDependency indicates tables require each other directly or transitively.
	ErrCyclicDependency = errors.New("cyclic table dependency")

	// ErrScriptNotRegistered indicates a Go migration artifact has no registered script.
	ErrScriptNotRegistered = errors.New("migration script not registered")

	// ErrUnsupportedDialect indicates an unknown dialect name.
	ErrUnsupportedDialect = errors.New("unsupported dialect")

	// ErrUnsupportedKind indicates an unknown artifact kind.
	ErrUnsupportedKind = errors.New("unsupported migration type")
)

// InconsistentDataError describes the first released line that no longer matches.
type InconsistentDataError struct {
	Table    string // Table the file belongs to, set by the caller when known
	File     string // schema.sql or data.sql, set by the caller when known
	Line     int    // 1-based line number
	Previous string // Released content of the line
	Current  string // Content found now ("" when the line was removed)
	Removed  bool   // The line no longer exists
}

// Error implements the error interface.
func (e *InconsistentDataError) Error() string {
	var where string
	if e.Table != "" {
		where = fmt.Sprintf(" in %s/%s", e.Table, e.File)
	}
	if e.Removed {
		return fmt.Sprintf("inconsistent data%s: released line %d was removed: %q", where, e.Line, e.Previous)
	}
	return fmt.Sprintf("inconsistent data%s: released line %d was altered: %q -> %q", where, e.Line, e.Previous, e.Current)
}

// Is matches ErrInconsistentData.
func (e *InconsistentDataError) Is(target error) bool {
	return target == ErrInconsistentData
}

// CyclicDependencyError lists the tables forming a require cycle, in cycle order.
type CyclicDependencyError struct {
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic table dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Is matches ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// MigrationError wraps ledger-protocol failures with the version and step involved.
type MigrationError struct {
	Version string // Migration version, empty for whole-ledger failures
	Op      string // create, finalize, fetch state, genesis
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s: %s: %v", e.Version, e.Op, e.Err)
	}
	return fmt.Sprintf("migration: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a MigrationError.
func NewMigrationError(version, op string, err error) *MigrationError {
	return &MigrationError{Version: version, Op: op, Err: err}
}

// FileWriteError reports an artifact or scaffold file that could not be written.
type FileWriteError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileWriteError) Unwrap() error {
	return e.Err
}
