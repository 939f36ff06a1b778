package lifecycle

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/store"
)

// Config holds configuration for the lifecycle Manager.
type Config struct {
	// Store is the migration ledger (required).
	Store store.LedgerStore

	// Logger is for observability (optional).
	Logger es.Logger
}

// Manager drives one migration attempt through the ledger protocol:
// a pending row is created, the work runs, and the row is finalized as
// ok or error.
type Manager struct {
	config Config
}

// New creates a new lifecycle Manager with the given configuration.
func New(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Begin records a pending attempt for version.
// A failure here leaves no ledger row behind.
func (m *Manager) Begin(ctx context.Context, version string) (tablemig.LedgerEntry, error) {
	entry, err := m.config.Store.Insert(ctx, version, tablemig.StatusPending)
	if err != nil {
		if m.config.Logger != nil {
			m.config.Logger.Error(ctx, "failed to create ledger entry", "version", version, "error", err)
		}
		return tablemig.LedgerEntry{}, tablemig.NewMigrationError(version, "create", err)
	}

	if m.config.Logger != nil {
		m.config.Logger.Debug(ctx, "ledger entry created", "version", version, "id", entry.ID)
	}

	return entry, nil
}

// Complete marks the attempt as ok.
func (m *Manager) Complete(ctx context.Context, entry tablemig.LedgerEntry) error {
	if err := m.config.Store.UpdateStatus(ctx, entry.ID, tablemig.StatusOK, nil); err != nil {
		if m.config.Logger != nil {
			m.config.Logger.Error(ctx, "failed to finalize ledger entry", "version", entry.Version, "id", entry.ID, "error", err)
		}
		return tablemig.NewMigrationError(entry.Version, "finalize", err)
	}

	if m.config.Logger != nil {
		m.config.Logger.Debug(ctx, "ledger entry finalized", "version", entry.Version, "id", entry.ID, "status", tablemig.StatusOK)
	}

	return nil
}

// Fail marks the attempt as error with cause as the note and returns cause.
// If the ledger update also fails, both errors are returned together.
func (m *Manager) Fail(ctx context.Context, entry tablemig.LedgerEntry, cause error) error {
	note := cause.Error()
	if err := m.config.Store.UpdateStatus(ctx, entry.ID, tablemig.StatusError, &note); err != nil {
		if m.config.Logger != nil {
			m.config.Logger.Error(ctx, "failed to finalize ledger entry", "version", entry.Version, "id", entry.ID, "error", err)
		}
		return multierror.Append(cause, tablemig.NewMigrationError(entry.Version, "finalize", err))
	}

	if m.config.Logger != nil {
		m.config.Logger.Debug(ctx, "ledger entry finalized", "version", entry.Version, "id", entry.ID, "status", tablemig.StatusError)
	}

	return cause
}

// Run executes fn as one tracked attempt for version.
// The error of fn is returned unchanged after it has been recorded.
func (m *Manager) Run(ctx context.Context, version string, fn func(ctx context.Context) error) error {
	entry, err := m.Begin(ctx, version)
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		return m.Fail(ctx, entry, err)
	}

	return m.Complete(ctx, entry)
}
