package migrations

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/version"
)

// DefaultPackage is the package name written into programmatic artifacts.
const DefaultPackage = "migrations"

// Config configures artifact generation.
type Config struct {
	// OutputFolder is the migrations root the artifact is written to.
	OutputFolder string

	// Version is the artifact version, usually from ArtifactVersion.
	Version string

	// Dialect selects the SQL template (KindSQL only).
	Dialect tablemig.Dialect

	// Kind selects a declarative SQL or a programmatic Go artifact.
	Kind tablemig.Kind

	// Package is the Go package name of programmatic artifacts (default: "migrations").
	Package string
}

// DefaultConfig returns the default configuration for a version.
func DefaultConfig(v string) Config {
	return Config{
		OutputFolder: "migrations",
		Version:      v,
		Dialect:      tablemig.DialectPostgres,
		Kind:         tablemig.KindSQL,
		Package:      DefaultPackage,
	}
}

func validateConfig(config *Config) error {
	if err := version.Validate(config.Version); err != nil {
		return err
	}
	if _, err := tablemig.ParseKind(string(config.Kind)); err != nil {
		return err
	}
	if config.Kind == tablemig.KindSQL {
		if _, err := tablemig.ParseDialect(string(config.Dialect)); err != nil {
			return err
		}
	}
	if config.Kind == tablemig.KindGo && config.Package != "" {
		if err := ValidateIdentifier(config.Package, "Package"); err != nil {
			return err
		}
	}
	return nil
}

// JoinDeltas concatenates the schema and seed deltas of ordered tables,
// separating tables with a blank line. Empty deltas are skipped.
func JoinDeltas(tables []tablemig.TableChangeSet) (schema, seed string) {
	var schemas, seeds []string
	for _, t := range tables {
		if s := strings.TrimRight(t.SchemaDelta, "\n"); s != "" {
			schemas = append(schemas, s)
		}
		if s := strings.TrimRight(t.SeedDelta, "\n"); s != "" {
			seeds = append(seeds, s)
		}
	}
	return strings.Join(schemas, "\n\n"), strings.Join(seeds, "\n\n")
}

// Render builds the artifact for already ordered tables without touching the filesystem.
func Render(tables []tablemig.TableChangeSet, config *Config) (tablemig.MigrationArtifact, error) {
	if err := validateConfig(config); err != nil {
		return tablemig.MigrationArtifact{}, fmt.Errorf("invalid configuration: %w", err)
	}

	schema, seed := JoinDeltas(tables)
	artifact := tablemig.MigrationArtifact{
		Version: config.Version,
		Kind:    config.Kind,
	}

	switch config.Kind {
	case tablemig.KindGo:
		pkg := config.Package
		if pkg == "" {
			pkg = DefaultPackage
		}
		artifact.Body = RenderGo(pkg, config.Version, schema, seed)
	default:
		body, err := RenderSQL(config.Dialect, schema, seed, config.Version)
		if err != nil {
			return tablemig.MigrationArtifact{}, err
		}
		artifact.Dialect = config.Dialect
		artifact.Body = body
	}

	return artifact, nil
}

// Write stores artifact as <dir>/<version><ext> and returns it with Path set.
// An existing file is never overwritten: it fails with ErrFileSystemConflict.
func Write(dir string, artifact tablemig.MigrationArtifact) (tablemig.MigrationArtifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return artifact, &tablemig.FileWriteError{Path: dir, Err: err}
	}

	outputPath := filepath.Join(dir, artifact.Filename())
	if err := CreateExclusive(outputPath, artifact.Body); err != nil {
		return artifact, err
	}

	artifact.Path = outputPath
	return artifact, nil
}

// CreateExclusive writes content to a new file at path.
func CreateExclusive(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: file already created at %s", tablemig.ErrFileSystemConflict, path)
	}
	if err != nil {
		return &tablemig.FileWriteError{Path: path, Err: err}
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return &tablemig.FileWriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &tablemig.FileWriteError{Path: path, Err: err}
	}
	return nil
}

// Generate renders the artifact for ordered tables and writes it to config.OutputFolder.
func Generate(tables []tablemig.TableChangeSet, config *Config) (tablemig.MigrationArtifact, error) {
	artifact, err := Render(tables, config)
	if err != nil {
		return tablemig.MigrationArtifact{}, err
	}
	return Write(config.OutputFolder, artifact)
}

// DevelopmentMarker is appended to a working version that is already released.
const DevelopmentMarker = "development"

// ArtifactVersion returns the version a new artifact is written under.
// If current is already tagged, "development" is appended as a pre-release
// component ("-development") or, when current already has a pre-release,
// as an extra identifier (".development").
func ArtifactVersion(current string, tags []string) (string, error) {
	if err := version.Validate(current); err != nil {
		return "", err
	}
	if !version.Contains(tags, current) {
		return current, nil
	}
	pre, err := version.HasPrerelease(current)
	if err != nil {
		return "", err
	}
	if pre {
		return current + "." + DevelopmentMarker, nil
	}
	return current + "-" + DevelopmentMarker, nil
}
