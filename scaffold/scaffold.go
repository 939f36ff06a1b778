// Package scaffold creates and inspects the migrations directory layout:
//
//	<mig>/README.md
//	<mig>/src/<table>[_v<N>]/schema.sql
//	<mig>/src/<table>[_v<N>]/data.sql
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/delta"
	"github.com/getpup/tablemig/pkg/migrations"
	"github.com/getpup/tablemig/source"
)

// ReadmeFile marks a scaffolded migrations directory.
const ReadmeFile = "README.md"

// Subject selects which table file to create.
type Subject string

const (
	// SubjectSchema creates schema.sql.
	SubjectSchema Subject = "schema"

	// SubjectSeed creates data.sql.
	SubjectSeed Subject = "seed"
)

// Filename returns the file the subject is stored in.
func (s Subject) Filename() (string, error) {
	switch s {
	case SubjectSchema:
		return source.SchemaFile, nil
	case SubjectSeed:
		return source.SeedFile, nil
	}
	return "", fmt.Errorf("invalid subject %q", s)
}

var tableNameRegex = regexp.MustCompile(`^[\w-]+$`)

// Inspect reports whether migDir is scaffolded. It returns true when the
// directory, src/ and README.md all exist, false when none do, and an error
// wrapping tablemig.ErrFileSystemConflict for anything in between.
func Inspect(migDir string) (bool, error) {
	checks := []struct {
		path string
		dir  bool
	}{
		{migDir, true},
		{filepath.Join(migDir, source.SrcDir), true},
		{filepath.Join(migDir, ReadmeFile), false},
	}

	present := 0
	for _, c := range checks {
		info, err := os.Stat(c.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return false, fmt.Errorf("failed to inspect %s: %w", c.path, err)
		case info.IsDir() != c.dir:
			return false, fmt.Errorf("%w: unexpected file type at %s", tablemig.ErrFileSystemConflict, c.path)
		}
		present++
	}

	switch present {
	case 0:
		return false, nil
	case len(checks):
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s is only partially initialized", tablemig.ErrFileSystemConflict, migDir)
	}
}

// Init creates migDir, its src/ directory and an empty README.md.
func Init(migDir string) error {
	if err := os.MkdirAll(filepath.Join(migDir, source.SrcDir), 0o755); err != nil {
		return &tablemig.FileWriteError{Path: migDir, Err: err}
	}
	return migrations.CreateExclusive(filepath.Join(migDir, ReadmeFile), "")
}

// Ensure initializes migDir unless it is already scaffolded.
// It returns true when the layout was created.
func Ensure(migDir string) (bool, error) {
	ok, err := Inspect(migDir)
	if err != nil || ok {
		return false, err
	}
	if err := Init(migDir); err != nil {
		return false, err
	}
	return true, nil
}

// CreateTableFile creates the schema or seed file of table with one
// {require:X} header line per entry of requires, and returns its path.
// An existing file is never overwritten.
func CreateTableFile(migDir, table string, subject Subject, requires []string) (string, error) {
	if !tableNameRegex.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	for _, req := range requires {
		if !tableNameRegex.MatchString(req) {
			return "", fmt.Errorf("invalid required table name %q", req)
		}
	}

	filename, err := subject.Filename()
	if err != nil {
		return "", err
	}

	tableDir := filepath.Join(migDir, source.SrcDir, table)
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		return "", &tablemig.FileWriteError{Path: tableDir, Err: err}
	}

	var content string
	for _, req := range requires {
		content += delta.RequireFlag(req)
	}

	path := filepath.Join(tableDir, filename)
	if err := migrations.CreateExclusive(path, content); err != nil {
		return "", err
	}
	return path, nil
}
