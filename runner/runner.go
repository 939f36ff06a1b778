// Package runner applies pending migration artifacts against a database
// while keeping the migration ledger consistent.
//
// Every artifact goes through the ledger protocol of the lifecycle package:
// a pending row is inserted, the artifact is executed, and the row is
// finalized as ok or error. The first failure halts the batch.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/executor"
	"github.com/getpup/tablemig/lifecycle"
	"github.com/getpup/tablemig/logging"
	"github.com/getpup/tablemig/metrics"
	"github.com/getpup/tablemig/store"
	"github.com/getpup/tablemig/version"
)

// Config configures the Runner.
type Config struct {
	// Store is the migration ledger (required).
	Store store.LedgerStore

	// Executor runs artifact bodies against the database (required).
	Executor executor.Executor

	// Dir holds the migration artifacts (required).
	Dir string

	// Scripts resolves .go artifacts (default: DefaultRegistry).
	Scripts *Registry

	// Logger is for observability (optional).
	Logger es.Logger

	// Metrics records apply metrics (optional).
	Metrics *metrics.Collector
}

// MigrateOptions controls a single Migrate call.
type MigrateOptions struct {
	// GenesisVersion declares the version an untracked database is already at.
	// Only accepted while the ledger is empty.
	GenesisVersion string
}

// Result summarizes a Migrate call.
type Result struct {
	// RunID identifies the invocation in log lines.
	RunID string

	// From is the effective version before the run, empty when none.
	From string

	// Applied lists the versions applied successfully, in order.
	Applied []string
}

// Runner applies migration artifacts.
type Runner struct {
	config Config
}

// New creates a new Runner with the given configuration.
// Applies the DefaultRegistry if Scripts is not set.
func New(cfg Config) *Runner {
	if cfg.Scripts == nil {
		cfg.Scripts = DefaultRegistry
	}
	return &Runner{config: cfg}
}

// FetchState returns the highest version whose last ledger attempt is ok,
// or "" when none is. The ledger table is created when missing.
// A version whose last attempt is still pending fails with
// tablemig.ErrAwaitingPending wrapped in a MigrationError.
func (r *Runner) FetchState(ctx context.Context) (string, error) {
	current, _, err := r.fetchState(ctx)
	return current, err
}

func (r *Runner) fetchState(ctx context.Context) (string, []tablemig.LedgerEntry, error) {
	if err := r.config.Store.EnsureTable(ctx); err != nil {
		return "", nil, tablemig.NewMigrationError("", "fetch state", err)
	}

	entries, err := r.config.Store.List(ctx)
	if err != nil {
		return "", nil, tablemig.NewMigrationError("", "fetch state", err)
	}

	last := Effective(entries)

	var applied []string
	for _, entry := range last {
		switch entry.Status {
		case tablemig.StatusPending:
			return "", nil, tablemig.NewMigrationError(entry.Version, "fetch state", tablemig.ErrAwaitingPending)
		case tablemig.StatusOK:
			applied = append(applied, entry.Version)
		}
	}

	return version.Max(applied), entries, nil
}

// Effective returns the latest entry of every version, in ledger order.
func Effective(entries []tablemig.LedgerEntry) []tablemig.LedgerEntry {
	latest := make(map[string]tablemig.LedgerEntry, len(entries))
	for _, entry := range entries {
		if prev, ok := latest[entry.Version]; !ok || entry.ID > prev.ID {
			latest[entry.Version] = entry
		}
	}

	out := make([]tablemig.LedgerEntry, 0, len(latest))
	for _, entry := range latest {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SelectPending lists the artifacts in dir whose version is above current
// (all of them when current is ""), in ascending version order.
// Files that are not <semver>.sql or <semver>.go are ignored. Bodies of
// .sql artifacts are loaded.
func SelectPending(dir, current string) ([]tablemig.MigrationArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[string]tablemig.MigrationArtifact)
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		kind, ok := tablemig.KindFromExtension(ext)
		if !ok {
			continue
		}

		v := strings.TrimSuffix(name, ext)
		if version.Validate(v) != nil {
			continue
		}

		if current != "" {
			cmp, err := version.Compare(v, current)
			if err != nil {
				return nil, err
			}
			if cmp <= 0 {
				continue
			}
		}

		if existing, dup := byVersion[v]; dup {
			return nil, fmt.Errorf("%w: version %s has both %s and %s", tablemig.ErrFileSystemConflict, v, existing.Filename(), name)
		}

		artifact := tablemig.MigrationArtifact{
			Version: v,
			Kind:    kind,
			Path:    filepath.Join(dir, name),
		}
		if kind == tablemig.KindSQL {
			body, err := os.ReadFile(artifact.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", artifact.Path, err)
			}
			artifact.Body = string(body)
		}

		byVersion[v] = artifact
		versions = append(versions, v)
	}

	pending := make([]tablemig.MigrationArtifact, 0, len(versions))
	for _, v := range version.SortAscending(versions) {
		pending = append(pending, byVersion[v])
	}
	return pending, nil
}

// Migrate applies every pending artifact in ascending version order.
// It stops at the first failure and returns it; the Result lists what
// was applied before that.
func (r *Runner) Migrate(ctx context.Context, opts MigrateOptions) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := logging.WithFields(r.config.Logger, "run_id", result.RunID)

	if opts.GenesisVersion != "" {
		if err := version.Validate(opts.GenesisVersion); err != nil {
			return result, fmt.Errorf("genesis version: %w", err)
		}
	}

	current, entries, err := r.fetchState(ctx)
	if err != nil {
		return result, err
	}

	if opts.GenesisVersion != "" {
		if len(entries) > 0 {
			return result, tablemig.NewMigrationError(opts.GenesisVersion, "genesis", tablemig.ErrLedgerNotEmpty)
		}
		current = opts.GenesisVersion
	}
	result.From = current

	pending, err := SelectPending(r.config.Dir, current)
	if err != nil {
		return result, err
	}

	scripts, err := r.resolveScripts(pending)
	if err != nil {
		return result, err
	}

	if r.config.Metrics != nil {
		r.config.Metrics.SetPendingMigrations(len(pending))
	}

	if opts.GenesisVersion != "" {
		if _, err := r.config.Store.Insert(ctx, opts.GenesisVersion, tablemig.StatusOK); err != nil {
			return result, tablemig.NewMigrationError(opts.GenesisVersion, "genesis", err)
		}
		if logger != nil {
			logger.Info(ctx, "genesis version recorded", "version", opts.GenesisVersion)
		}
	}

	if len(pending) == 0 {
		if logger != nil {
			logger.Info(ctx, "database is up to date", "version", current)
		}
		return result, nil
	}

	manager := lifecycle.New(lifecycle.Config{Store: r.config.Store, Logger: logger})

	for i, artifact := range pending {
		if logger != nil {
			logger.Info(ctx, "initializing migration", "version", artifact.Version, "kind", artifact.Kind)
		}

		start := time.Now()
		err := manager.Run(ctx, artifact.Version, func(ctx context.Context) error {
			return r.apply(ctx, artifact, scripts[artifact.Version])
		})
		r.record(err, time.Since(start), len(pending)-i)

		if err != nil {
			if logger != nil {
				logger.Error(ctx, "migration failed", "version", artifact.Version, "error", err)
			}
			return result, err
		}

		result.Applied = append(result.Applied, artifact.Version)
		if logger != nil {
			logger.Info(ctx, "migration applied", "version", artifact.Version, "duration", time.Since(start))
		}
	}

	return result, nil
}

// resolveScripts looks up every .go artifact before anything is written.
func (r *Runner) resolveScripts(pending []tablemig.MigrationArtifact) (map[string]Script, error) {
	scripts := make(map[string]Script)
	for _, artifact := range pending {
		if artifact.Kind != tablemig.KindGo {
			continue
		}
		script, ok := r.config.Scripts.Lookup(artifact.Version)
		if !ok {
			return nil, fmt.Errorf("%w: %s", tablemig.ErrScriptNotRegistered, artifact.Path)
		}
		scripts[artifact.Version] = script
	}
	return scripts, nil
}

func (r *Runner) apply(ctx context.Context, artifact tablemig.MigrationArtifact, script Script) error {
	if artifact.Kind == tablemig.KindGo {
		return script(ctx, r.config.Executor)
	}
	return r.config.Executor.Exec(ctx, artifact.Body)
}

func (r *Runner) record(err error, elapsed time.Duration, remaining int) {
	if r.config.Metrics == nil {
		return
	}

	r.config.Metrics.ObserveMigrationDuration(elapsed.Seconds())
	if err != nil {
		r.config.Metrics.IncMigrationsApplied(tablemig.StatusError.String())
		r.config.Metrics.SetPendingMigrations(remaining)
		return
	}
	r.config.Metrics.IncMigrationsApplied(tablemig.StatusOK.String())
	r.config.Metrics.SetPendingMigrations(remaining - 1)
}

// Status returns the most recent ledger entries, newest first.
// A limit of zero or less returns every entry.
func (r *Runner) Status(ctx context.Context, limit int) ([]tablemig.LedgerEntry, error) {
	if err := r.config.Store.EnsureTable(ctx); err != nil {
		return nil, tablemig.NewMigrationError("", "fetch state", err)
	}

	entries, err := r.config.Store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}
