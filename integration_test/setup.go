//go:build integration

package integration_test

import (
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/store/sqlstore"
)

// project is a git work tree with a scaffolded migrations directory.
type project struct {
	t      *testing.T
	root   string
	migDir string
}

// newProject initializes an empty git repository in a temporary directory.
// It skips the test when no git binary is available.
func newProject(t *testing.T) *project {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available, skipping integration test")
	}

	root := t.TempDir()
	p := &project{t: t, root: root, migDir: filepath.Join(root, "migrations")}
	p.git("init", "-q")
	return p
}

func (p *project) git(args ...string) {
	p.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = p.root
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		p.t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

// release commits the working tree and tags it.
func (p *project) release(tag string) {
	p.t.Helper()
	p.git("add", ".")
	p.git("commit", "-q", "--allow-empty", "-m", "release "+tag)
	p.git("tag", tag)
}

// write replaces a table file relative to migrations/src.
func (p *project) write(rel, content string) {
	p.t.Helper()
	path := filepath.Join(p.migDir, "src", rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.t.Fatalf("failed to write %s: %v", path, err)
	}
}

// appendTo appends content to a table file relative to migrations/src.
func (p *project) appendTo(rel, content string) {
	p.t.Helper()
	path := filepath.Join(p.migDir, "src", rel)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		p.t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		p.t.Fatalf("failed to append to %s: %v", path, err)
	}
}

// getSQLiteDB opens a fresh SQLite database in a temporary directory.
func getSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// getPostgresDB returns a connection from POSTGRES_URL and skips the test if it is not set.
func getPostgresDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// dropLedger removes the ledger table. Cleanup is best-effort.
func dropLedger(t *testing.T, db *sql.DB, config sqlstore.TableConfig) {
	t.Helper()
	if _, err := db.Exec(sqlstore.MigrationDown(config)); err != nil {
		t.Logf("Warning: failed to drop ledger: %v", err)
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func statuses(entries []tablemig.LedgerEntry) map[string]tablemig.Status {
	out := make(map[string]tablemig.Status, len(entries))
	for _, e := range entries {
		out[e.Version] = e.Status
	}
	return out
}
