// Package source discovers table definition directories and loads their
// current and previously released schema.sql and data.sql files.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/gitrepo"
)

const (
	// SrcDir is the directory under the migrations root holding table definitions.
	SrcDir = "src"

	// SchemaFile holds a table's DDL.
	SchemaFile = "schema.sql"

	// SeedFile holds a table's seed data.
	SeedFile = "data.sql"

	defaultConcurrency = 8
)

var versionedDir = regexp.MustCompile(`^(.+)_v(\d{1,2})$`)

// ParseTableDir splits a table directory name into its logical name and version.
// Directories without a _v<N> suffix are version 0.
func ParseTableDir(dirName string) (string, int) {
	m := versionedDir.FindStringSubmatch(dirName)
	if m == nil {
		return dirName, 0
	}
	v, _ := strconv.Atoi(m[2])
	return m[1], v
}

// DiscoverTables lists the table directories under <migrationsRoot>/src.
// Only the highest version of each logical table is returned; superseded
// snapshots are dropped. The result is sorted by table name.
func DiscoverTables(migrationsRoot string) ([]tablemig.TableChangeSet, error) {
	srcDir := filepath.Join(migrationsRoot, SrcDir)
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", srcDir, err)
	}

	latest := make(map[string]tablemig.TableChangeSet)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, version := ParseTableDir(entry.Name())
		if cur, ok := latest[name]; ok && cur.Version >= version {
			continue
		}
		latest[name] = tablemig.TableChangeSet{
			Name:    name,
			Version: version,
			Dir:     filepath.Join(srcDir, entry.Name()),
		}
	}

	tables := make([]tablemig.TableChangeSet, 0, len(latest))
	for _, t := range latest {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	return tables, nil
}

// LoadCurrent reads schema.sql and data.sql from tableDir.
// A missing file yields an empty string.
func LoadCurrent(tableDir string) (schema, seed string, err error) {
	if schema, err = readOptional(filepath.Join(tableDir, SchemaFile)); err != nil {
		return "", "", err
	}
	if seed, err = readOptional(filepath.Join(tableDir, SeedFile)); err != nil {
		return "", "", err
	}
	return schema, seed, nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// LoadPrevious reads schema.sql and data.sql of tableDir at revision.
// A file that did not exist at the revision yields nil.
func LoadPrevious(ctx context.Context, repo gitrepo.Repository, repoRoot, tableDir, revision string) (schema, seed *string, err error) {
	rel, err := relativePath(repoRoot, tableDir)
	if err != nil {
		return nil, nil, err
	}

	if schema, err = readAt(ctx, repo, rel+"/"+SchemaFile, revision); err != nil {
		return nil, nil, err
	}
	if seed, err = readAt(ctx, repo, rel+"/"+SeedFile, revision); err != nil {
		return nil, nil, err
	}
	return schema, seed, nil
}

func readAt(ctx context.Context, repo gitrepo.Repository, path, revision string) (*string, error) {
	content, err := repo.ReadFileAt(ctx, path, revision)
	if errors.Is(err, gitrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func relativePath(repoRoot, dir string) (string, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", repoRoot, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s relative to %s: %w", dir, repoRoot, err)
	}
	return filepath.ToSlash(rel), nil
}

// Config holds configuration for the Loader.
type Config struct {
	// MigrationsDir is the migrations root containing src/ (required).
	MigrationsDir string

	// RepoRoot is the git work tree root (required when reading history).
	RepoRoot string

	// Repo reads previously released files (required when reading history).
	Repo gitrepo.Repository

	// Concurrency bounds parallel table reads (default: 8).
	Concurrency int

	// Logger is for observability (optional).
	Logger es.Logger
}

// Loader loads every active table with its current and previous content.
type Loader struct {
	config Config
}

// NewLoader creates a Loader with the given configuration.
func NewLoader(cfg Config) *Loader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loader{config: cfg}
}

// Load discovers tables and reads their definitions. When revision is empty
// no history is read and every previous file is absent. Reads of different
// tables run concurrently; the result keeps DiscoverTables order.
func (l *Loader) Load(ctx context.Context, revision string) ([]tablemig.TableChangeSet, error) {
	tables, err := DiscoverTables(l.config.MigrationsDir)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Concurrency)

	for i := range tables {
		t := &tables[i]
		g.Go(func() error {
			schema, seed, err := LoadCurrent(t.Dir)
			if err != nil {
				return err
			}
			t.CurrentSchema, t.CurrentSeed = schema, seed

			if revision == "" {
				return nil
			}
			prevSchema, prevSeed, err := LoadPrevious(gctx, l.config.Repo, l.config.RepoRoot, t.Dir, revision)
			if err != nil {
				return fmt.Errorf("failed to load %s at %s: %w", t.Name, revision, err)
			}
			t.PreviousSchema, t.PreviousSeed = prevSchema, prevSeed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if l.config.Logger != nil {
		l.config.Logger.Debug(ctx, "table definitions loaded", "tables", len(tables), "revision", revision)
	}

	return tables, nil
}
