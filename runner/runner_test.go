package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/executor"
	"github.com/getpup/tablemig/metrics"
	"github.com/getpup/tablemig/store"
	"github.com/getpup/tablemig/store/memory"
)

func writeArtifacts(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		body := "-- " + name + "\nSELECT 1;\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func versionsOf(artifacts []tablemig.MigrationArtifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Version
	}
	return out
}

func seedLedger(t *testing.T, s store.LedgerStore, rows ...tablemig.LedgerEntry) {
	t.Helper()
	ctx := context.Background()
	for _, row := range rows {
		entry, err := s.Insert(ctx, row.Version, tablemig.StatusPending)
		require.NoError(t, err)
		if row.Status != tablemig.StatusPending {
			require.NoError(t, s.UpdateStatus(ctx, entry.ID, row.Status, row.Note))
		}
	}
}

func TestFetchState_EmptyLedgerCreatesTable(t *testing.T) {
	s := memory.New()
	r := New(Config{Store: s, Executor: executor.NewMockExecutor(), Dir: t.TempDir()})

	current, err := r.FetchState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "", current)
	assert.True(t, s.Created())
}

func TestFetchState_HighestOK(t *testing.T) {
	s := memory.New()
	seedLedger(t, s,
		tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.10.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.9.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "2.0.0", Status: tablemig.StatusError},
	)
	r := New(Config{Store: s, Executor: executor.NewMockExecutor()})

	current, err := r.FetchState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1.10.0", current)
}

func TestFetchState_LatestAttemptWins(t *testing.T) {
	s := memory.New()
	seedLedger(t, s,
		tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.1.0", Status: tablemig.StatusError},
		tablemig.LedgerEntry{Version: "1.1.0", Status: tablemig.StatusOK},
	)
	r := New(Config{Store: s, Executor: executor.NewMockExecutor()})

	current, err := r.FetchState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1.1.0", current)
}

func TestFetchState_AwaitingPending(t *testing.T) {
	s := memory.New()
	seedLedger(t, s,
		tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.1.0", Status: tablemig.StatusPending},
	)
	r := New(Config{Store: s, Executor: executor.NewMockExecutor()})

	_, err := r.FetchState(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, tablemig.ErrAwaitingPending)

	var migErr *tablemig.MigrationError
	require.True(t, errors.As(err, &migErr))
	assert.Equal(t, "1.1.0", migErr.Version)
}

func TestFetchState_StoreFailure(t *testing.T) {
	s := store.NewMockLedgerStore()
	s.EnsureTableFunc = func(ctx context.Context) error { return errors.New("connection refused") }
	r := New(Config{Store: s, Executor: executor.NewMockExecutor()})

	_, err := r.FetchState(context.Background())

	var migErr *tablemig.MigrationError
	require.True(t, errors.As(err, &migErr))
	assert.Equal(t, "fetch state", migErr.Op)
}

func TestSelectPending_ReplaySafety(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.sql", "1.2.0.sql", "README.md", "notes.sql", "1.sql", "1.1.sql", "1.2.3.4.sql")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))

	pending, err := SelectPending(dir, "1.0.0")

	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.0", "1.2.0"}, versionsOf(pending))
	assert.Contains(t, pending[0].Body, "-- 1.1.0.sql")
	assert.Equal(t, filepath.Join(dir, "1.1.0.sql"), pending[0].Path)
}

func TestSelectPending_AllWhenNoState(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.10.0.sql", "1.9.0.sql", "1.0.0-development.sql", "1.0.0.go")

	pending, err := SelectPending(dir, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0-development", "1.0.0", "1.9.0", "1.10.0"}, versionsOf(pending))
	assert.Equal(t, tablemig.KindGo, pending[1].Kind)
	assert.Empty(t, pending[1].Body)
}

func TestSelectPending_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.0.0.go")

	_, err := SelectPending(dir, "")

	assert.ErrorIs(t, err, tablemig.ErrFileSystemConflict)
}

func TestSelectPending_MissingDir(t *testing.T) {
	_, err := SelectPending(filepath.Join(t.TempDir(), "absent"), "")
	assert.Error(t, err)
}

func TestSelectPending_AboveCurrentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir, err := os.MkdirTemp("", "tablemig-select")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(dir)

		n := rapid.IntRange(1, 12).Draw(t, "n")
		cut := rapid.IntRange(0, n).Draw(t, "cut")

		for i := 0; i < n; i++ {
			path := filepath.Join(dir, fmt.Sprintf("1.%d.0.sql", i))
			if err := os.WriteFile(path, []byte("SELECT 1;"), 0o644); err != nil {
				t.Fatal(err)
			}
		}

		current := ""
		if cut > 0 {
			current = fmt.Sprintf("1.%d.0", cut-1)
		}

		pending, err := SelectPending(dir, current)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != n-cut {
			t.Fatalf("expected %d pending, got %d", n-cut, len(pending))
		}
		for i, artifact := range pending {
			if want := fmt.Sprintf("1.%d.0", cut+i); artifact.Version != want {
				t.Fatalf("position %d: expected %s, got %s", i, want, artifact.Version)
			}
		}
	})
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.1.0.sql", "1.0.0.sql", "1.2.0.sql")
	s := memory.New()
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir})

	result, err := r.Migrate(context.Background(), MigrateOptions{})

	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "", result.From)
	assert.Equal(t, []string{"1.0.0", "1.1.0", "1.2.0"}, result.Applied)

	calls := exec.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0], "1.0.0.sql")
	assert.Contains(t, calls[2], "1.2.0.sql")

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, tablemig.StatusOK, entry.Status)
	}
}

func TestMigrate_SkipsApplied(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.sql", "1.2.0.sql")
	s := memory.New()
	seedLedger(t, s, tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK})
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir})

	result, err := r.Migrate(context.Background(), MigrateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.From)
	assert.Equal(t, []string{"1.1.0", "1.2.0"}, result.Applied)
	assert.Len(t, exec.Calls(), 2)
}

func TestMigrate_FailureHaltsBatch(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.sql", "1.2.0.sql")
	s := memory.New()
	exec := executor.NewMockExecutor()
	exec.ExecFunc = func(ctx context.Context, body string) error {
		if strings.Contains(body, "1.1.0") {
			return errors.New("syntax error at or near \"SELEC\"")
		}
		return nil
	}
	collector := metrics.NewCollector("runner-halt")
	r := New(Config{Store: s, Executor: exec, Dir: dir, Metrics: collector})

	result, err := r.Migrate(context.Background(), MigrateOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Equal(t, []string{"1.0.0"}, result.Applied)
	assert.Len(t, exec.Calls(), 2, "third artifact must never run")

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1.0.0", entries[0].Version)
	assert.Equal(t, tablemig.StatusOK, entries[0].Status)
	assert.Equal(t, "1.1.0", entries[1].Version)
	assert.Equal(t, tablemig.StatusError, entries[1].Status)
	require.NotNil(t, entries[1].Note)
	assert.Contains(t, *entries[1].Note, "syntax error")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MigrationsAppliedTotal.WithLabelValues("runner-halt", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MigrationsAppliedTotal.WithLabelValues("runner-halt", "error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PendingMigrations.WithLabelValues("runner-halt")))
}

func TestMigrate_RetriesFailedVersion(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.sql")
	s := memory.New()
	seedLedger(t, s,
		tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.1.0", Status: tablemig.StatusError},
	)
	r := New(Config{Store: s, Executor: executor.NewMockExecutor(), Dir: dir})

	result, err := r.Migrate(context.Background(), MigrateOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.0"}, result.Applied)

	current, err := r.FetchState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", current)
}

func TestMigrate_RefusesWhilePending(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql")
	s := memory.New()
	seedLedger(t, s, tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusPending})
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir})

	_, err := r.Migrate(context.Background(), MigrateOptions{})

	assert.ErrorIs(t, err, tablemig.ErrAwaitingPending)
	assert.Empty(t, exec.Calls())
}

func TestMigrate_CreateFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.sql")
	s := store.NewMockLedgerStore()
	s.InsertFunc = func(ctx context.Context, version string, status tablemig.Status) (tablemig.LedgerEntry, error) {
		return tablemig.LedgerEntry{}, errors.New("disk full")
	}
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir})

	_, err := r.Migrate(context.Background(), MigrateOptions{})

	var migErr *tablemig.MigrationError
	require.True(t, errors.As(err, &migErr))
	assert.Equal(t, "create", migErr.Op)
	assert.Equal(t, "1.0.0", migErr.Version)
	assert.Empty(t, exec.Calls())
	assert.Empty(t, s.UpdateStatusCalls)
}

func TestMigrate_Genesis(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.sql", "1.2.0.sql")
	s := memory.New()
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir})

	result, err := r.Migrate(context.Background(), MigrateOptions{GenesisVersion: "1.1.0"})

	require.NoError(t, err)
	assert.Equal(t, "1.1.0", result.From)
	assert.Equal(t, []string{"1.2.0"}, result.Applied)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1.1.0", entries[0].Version)
	assert.Equal(t, tablemig.StatusOK, entries[0].Status)
}

func TestMigrate_GenesisRejectedWithState(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql")
	s := memory.New()
	seedLedger(t, s, tablemig.LedgerEntry{Version: "0.9.0", Status: tablemig.StatusError})
	r := New(Config{Store: s, Executor: executor.NewMockExecutor(), Dir: dir})

	_, err := r.Migrate(context.Background(), MigrateOptions{GenesisVersion: "1.0.0"})

	assert.ErrorIs(t, err, tablemig.ErrLedgerNotEmpty)
	entries, _ := s.List(context.Background())
	assert.Len(t, entries, 1)
}

func TestMigrate_GenesisInvalidVersion(t *testing.T) {
	for _, genesis := range []string{"first", "1.0", "1.2.3.4"} {
		t.Run(genesis, func(t *testing.T) {
			s := store.NewMockLedgerStore()
			r := New(Config{Store: s, Executor: executor.NewMockExecutor(), Dir: t.TempDir()})

			_, err := r.Migrate(context.Background(), MigrateOptions{GenesisVersion: genesis})

			assert.ErrorIs(t, err, tablemig.ErrInvalidVersion)
			assert.Equal(t, 0, s.EnsureTableCalls)
			assert.Empty(t, s.InsertCalls)
		})
	}
}

func TestMigrate_GoScripts(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.go")
	registry := NewRegistry()

	var received executor.Executor
	registry.Register("1.1.0", func(ctx context.Context, exec executor.Executor) error {
		received = exec
		return exec.Exec(ctx, "UPDATE app SET enabled = true;")
	})

	s := memory.New()
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir, Scripts: registry})

	result, err := r.Migrate(context.Background(), MigrateOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, result.Applied)
	assert.Same(t, exec, received)
	assert.Equal(t, "UPDATE app SET enabled = true;", exec.Calls()[1])
}

func TestMigrate_UnregisteredScript(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql", "1.1.0.go")
	s := memory.New()
	exec := executor.NewMockExecutor()
	r := New(Config{Store: s, Executor: exec, Dir: dir, Scripts: NewRegistry()})

	_, err := r.Migrate(context.Background(), MigrateOptions{})

	assert.ErrorIs(t, err, tablemig.ErrScriptNotRegistered)
	assert.Empty(t, exec.Calls())
	entries, _ := s.List(context.Background())
	assert.Empty(t, entries)
}

func TestMigrate_NothingPending(t *testing.T) {
	s := memory.New()
	seedLedger(t, s, tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK})
	dir := t.TempDir()
	writeArtifacts(t, dir, "1.0.0.sql")
	r := New(Config{Store: s, Executor: executor.NewMockExecutor(), Dir: dir})

	result, err := r.Migrate(context.Background(), MigrateOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.Applied)
}

func TestStatus(t *testing.T) {
	s := memory.New()
	seedLedger(t, s,
		tablemig.LedgerEntry{Version: "1.0.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.1.0", Status: tablemig.StatusOK},
		tablemig.LedgerEntry{Version: "1.2.0", Status: tablemig.StatusError},
	)
	r := New(Config{Store: s, Executor: executor.NewMockExecutor()})

	entries, err := r.Status(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1.2.0", entries[0].Version)
	assert.Equal(t, "1.1.0", entries[1].Version)

	all, err := r.Status(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEffective(t *testing.T) {
	entries := []tablemig.LedgerEntry{
		{ID: 1, Version: "1.0.0", Status: tablemig.StatusError},
		{ID: 2, Version: "1.1.0", Status: tablemig.StatusOK},
		{ID: 3, Version: "1.0.0", Status: tablemig.StatusOK},
	}

	last := Effective(entries)

	require.Len(t, last, 2)
	assert.Equal(t, int64(2), last[0].ID)
	assert.Equal(t, int64(3), last[1].ID)
	assert.Equal(t, tablemig.StatusOK, last[1].Status)
}
