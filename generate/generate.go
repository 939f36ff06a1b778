// Package generate produces a migration artifact from the table definitions
// of a repository: it resolves the previous release, computes the append-only
// deltas of every table, orders the changed tables by their requirements and
// writes the rendered artifact.
package generate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/delta"
	"github.com/getpup/tablemig/gitrepo"
	"github.com/getpup/tablemig/metrics"
	"github.com/getpup/tablemig/pkg/migrations"
	"github.com/getpup/tablemig/resolver"
	"github.com/getpup/tablemig/source"
	"github.com/getpup/tablemig/version"
)

// VersionFile holds the working version in the repository root.
const VersionFile = "VERSION"

// Config configures artifact generation.
type Config struct {
	// RepoRoot is the git work tree root (required).
	RepoRoot string

	// MigrationsDir is the migrations root containing src/ (required).
	MigrationsDir string

	// Version is the working version of the project (required, semver).
	Version string

	// Dialect selects the SQL template for KindSQL artifacts (default: postgres).
	Dialect tablemig.Dialect

	// Kind selects the artifact flavor (default: sql).
	Kind tablemig.Kind

	// Package is the Go package name of KindGo artifacts (default: "migrations").
	Package string

	// Repo reads tags and released files (required).
	Repo gitrepo.Repository

	// Logger is for observability (optional).
	Logger es.Logger

	// Metrics records generation metrics (optional).
	Metrics *metrics.Collector
}

// Plan is the outcome of the read-only part of generation.
type Plan struct {
	// Version is the version the artifact is written under.
	Version string

	// Revision is the release the deltas are computed against, empty when
	// no earlier release exists.
	Revision string

	// Tables are the changed tables in dependency order.
	Tables []tablemig.TableChangeSet
}

// Generator turns table definitions into migration artifacts.
type Generator struct {
	config Config
}

// New creates a new Generator with the given configuration.
// Applies default values for Dialect and Kind if not set.
func New(cfg Config) *Generator {
	if cfg.Dialect == "" {
		cfg.Dialect = tablemig.DialectPostgres
	}
	if cfg.Kind == "" {
		cfg.Kind = tablemig.KindSQL
	}

	return &Generator{
		config: cfg,
	}
}

// Plan resolves the previous release and computes the ordered deltas.
// Nothing is written. Every inconsistent table is reported, not just the first.
func (g *Generator) Plan(ctx context.Context) (Plan, error) {
	if err := version.Validate(g.config.Version); err != nil {
		return Plan{}, err
	}

	tags, err := g.config.Repo.ListTags(ctx)
	if err != nil {
		return Plan{}, err
	}

	artifactVersion, err := migrations.ArtifactVersion(g.config.Version, tags)
	if err != nil {
		return Plan{}, err
	}

	previous, err := version.PreviousRelease(g.config.Version, tags)
	if err != nil {
		return Plan{}, err
	}
	revision := matchTag(previous, tags)

	if g.config.Logger != nil {
		g.config.Logger.Debug(ctx, "resolved previous release", "version", g.config.Version, "revision", revision, "artifact", artifactVersion)
	}

	loader := source.NewLoader(source.Config{
		MigrationsDir: g.config.MigrationsDir,
		RepoRoot:      g.config.RepoRoot,
		Repo:          g.config.Repo,
		Logger:        g.config.Logger,
	})
	tables, err := loader.Load(ctx, revision)
	if err != nil {
		return Plan{}, err
	}

	var result *multierror.Error
	for i := range tables {
		if err := delta.Apply(&tables[i]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return Plan{}, err
	}

	ordered, err := resolver.Resolve(tables)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Version:  artifactVersion,
		Revision: revision,
		Tables:   ordered,
	}, nil
}

// Generate plans and writes the artifact. An artifact is written even when
// no table changed.
func (g *Generator) Generate(ctx context.Context) (tablemig.MigrationArtifact, error) {
	plan, err := g.Plan(ctx)
	if err != nil {
		return tablemig.MigrationArtifact{}, err
	}

	if len(plan.Tables) == 0 && g.config.Logger != nil {
		g.config.Logger.Info(ctx, "no database changes detected, creating empty migration file", "version", plan.Version)
	}

	artifact, err := migrations.Generate(plan.Tables, &migrations.Config{
		OutputFolder: g.config.MigrationsDir,
		Version:      plan.Version,
		Dialect:      g.config.Dialect,
		Kind:         g.config.Kind,
		Package:      g.config.Package,
	})
	if err != nil {
		return tablemig.MigrationArtifact{}, err
	}

	if g.config.Metrics != nil {
		g.config.Metrics.IncArtifactsGenerated(string(g.config.Dialect), string(g.config.Kind))
		g.config.Metrics.SetChangedTables(len(plan.Tables))
	}

	if g.config.Logger != nil {
		g.config.Logger.Info(ctx, "migration created", "path", artifact.Path, "tables", len(plan.Tables))
	}

	return artifact, nil
}

// matchTag returns the tag naming v, or "" when v is not a release.
// An exact string match wins over a semver-equal one ("v1.0.0" for "1.0.0").
func matchTag(v string, tags []string) string {
	for _, tag := range tags {
		if tag == v {
			return tag
		}
	}
	for _, tag := range tags {
		if c, err := version.Compare(tag, v); err == nil && c == 0 {
			return tag
		}
	}
	return ""
}

// ReadVersionFile returns the first line of <root>/VERSION.
func ReadVersionFile(root string) (string, error) {
	path := filepath.Join(root, VersionFile)
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read working version: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return "", fmt.Errorf("%w: %s is empty", tablemig.ErrInvalidVersion, path)
}
