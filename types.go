package tablemig

import (
	"fmt"
	"time"
)

// Dialect is the target database engine's SQL flavor.
// It only affects how deltas are wrapped into a migration script.
type Dialect string

const (
	// DialectPostgres wraps the migration in a single anonymous DO block.
	DialectPostgres Dialect = "postgres"

	// DialectMySQL wraps the migration in a temporary stored procedure.
	DialectMySQL Dialect = "mysql"

	// DialectSQLite wraps the migration in BEGIN TRANSACTION / COMMIT.
	DialectSQLite Dialect = "sqlite"
)

// Dialects lists every supported dialect.
var Dialects = []Dialect{DialectPostgres, DialectMySQL, DialectSQLite}

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	for _, d := range Dialects {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, s)
}

// Kind is the artifact flavor produced by the renderer.
type Kind string

const (
	// KindSQL is a declarative SQL script rendered through a dialect template.
	KindSQL Kind = "sql"

	// KindGo is a programmatic migration: a Go source stub registering a script
	// with the runner. Dialect is ignored for this kind.
	KindGo Kind = "go"
)

// Extension returns the artifact file extension (with leading dot) for the kind.
func (k Kind) Extension() string {
	switch k {
	case KindGo:
		return ".go"
	default:
		return ".sql"
	}
}

// ParseKind validates an artifact kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSQL, KindGo:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// KindFromExtension maps an artifact file extension to its kind.
func KindFromExtension(ext string) (Kind, bool) {
	switch ext {
	case ".sql":
		return KindSQL, true
	case ".go":
		return KindGo, true
	}
	return "", false
}

// TableChangeSet holds the schema/seed definitions of one logical table
// together with its deltas since the previous release.
type TableChangeSet struct {
	// Name is the logical table name (directory name without the _vN suffix).
	Name string

	// Version is the directory-encoded version marker (0 when unsuffixed).
	Version int

	// Dir is the table directory the definitions were read from.
	Dir string

	// CurrentSchema and CurrentSeed hold schema.sql/data.sql from disk.
	// A missing file yields an empty string.
	CurrentSchema string
	CurrentSeed   string

	// PreviousSchema and PreviousSeed hold the files at the previous release.
	// Nil means the file did not exist at that revision.
	PreviousSchema *string
	PreviousSeed   *string

	// SchemaDelta and SeedDelta are the append-only suffixes since the previous release.
	SchemaDelta string
	SeedDelta   string

	// Requires lists the tables referenced by {require:NAME} markers.
	Requires []string
}

// VersionTag returns the directory version marker, e.g. "v2".
func (t TableChangeSet) VersionTag() string {
	return fmt.Sprintf("v%d", t.Version)
}

// Changed reports whether the table contributes anything to a migration.
func (t TableChangeSet) Changed() bool {
	return t.SchemaDelta != "" || t.SeedDelta != ""
}

// MigrationArtifact is a generated, on-disk migration unit.
// It is immutable once written.
type MigrationArtifact struct {
	// Version is the semver string the artifact applies.
	Version string

	// Kind is the artifact flavor.
	Kind Kind

	// Dialect is the database flavor the body was rendered for (KindSQL only).
	Dialect Dialect

	// Body is the rendered content.
	Body string

	// Path is the artifact location on disk, empty until written.
	Path string
}

// Filename returns "<version><ext>".
func (a MigrationArtifact) Filename() string {
	return a.Version + a.Kind.Extension()
}

// Status is the outcome recorded for a migration-apply attempt.
type Status int

const (
	// StatusPending marks an attempt that has started but not finished.
	StatusPending Status = iota + 1

	// StatusOK marks a successfully applied migration.
	StatusOK

	// StatusError marks a failed migration; the entry note holds the failure.
	StatusError
)

// String returns the ledger representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus converts a ledger column value back into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "ok":
		return StatusOK, nil
	case "error":
		return StatusError, nil
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrLedgerCorrupt, s)
}

// LedgerEntry is one row of the migration ledger.
type LedgerEntry struct {
	// ID is the monotonic row identity.
	ID int64

	// Version is the migration version this attempt applied.
	Version string

	// Status is the outcome of the attempt.
	Status Status

	// Note holds the failure message when Status is StatusError.
	Note *string

	// CreatedAt is when the attempt started.
	CreatedAt time.Time
}
