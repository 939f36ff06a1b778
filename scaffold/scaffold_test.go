package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpup/tablemig"
	"github.com/getpup/tablemig/delta"
)

func TestInspect(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		ok, err := Inspect(filepath.Join(t.TempDir(), "migrations"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("complete", func(t *testing.T) {
		migDir := filepath.Join(t.TempDir(), "migrations")
		require.NoError(t, Init(migDir))

		ok, err := Inspect(migDir)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing readme", func(t *testing.T) {
		migDir := filepath.Join(t.TempDir(), "migrations")
		require.NoError(t, os.MkdirAll(filepath.Join(migDir, "src"), 0o755))

		_, err := Inspect(migDir)
		assert.ErrorIs(t, err, tablemig.ErrFileSystemConflict)
	})

	t.Run("src is a file", func(t *testing.T) {
		migDir := filepath.Join(t.TempDir(), "migrations")
		require.NoError(t, os.MkdirAll(migDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(migDir, "src"), nil, 0o644))

		_, err := Inspect(migDir)
		assert.ErrorIs(t, err, tablemig.ErrFileSystemConflict)
	})
}

func TestEnsure(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "migrations")

	created, err := Ensure(migDir)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = Ensure(migDir)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = os.Stat(filepath.Join(migDir, ReadmeFile))
	assert.NoError(t, err)
}

func TestInit_Twice(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "migrations")
	require.NoError(t, Init(migDir))

	err := Init(migDir)
	assert.ErrorIs(t, err, tablemig.ErrFileSystemConflict)
}

func TestCreateTableFile(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "migrations")
	require.NoError(t, Init(migDir))

	path, err := CreateTableFile(migDir, "app", SubjectSchema, []string{"app_type", "country"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(migDir, "src", "app", "schema.sql"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "-- {require:app_type}\n-- {require:country}\n", string(content))
	assert.Equal(t, []string{"app_type", "country"}, delta.ExtractRequires(string(content)))

	seedPath, err := CreateTableFile(migDir, "app_v2", SubjectSeed, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(migDir, "src", "app_v2", "data.sql"), seedPath)

	content, err = os.ReadFile(seedPath)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestCreateTableFile_NeverOverwrites(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "migrations")
	path, err := CreateTableFile(migDir, "country", SubjectSeed, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("INSERT INTO country VALUES ('cz');\n"), 0o644))

	_, err = CreateTableFile(migDir, "country", SubjectSeed, []string{"x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, tablemig.ErrFileSystemConflict)
	assert.Contains(t, err.Error(), "file already created at")

	content, _ := os.ReadFile(path)
	assert.Equal(t, "INSERT INTO country VALUES ('cz');\n", string(content))
}

func TestCreateTableFile_InvalidNames(t *testing.T) {
	migDir := t.TempDir()

	_, err := CreateTableFile(migDir, "../etc", SubjectSchema, nil)
	assert.Error(t, err)

	_, err = CreateTableFile(migDir, "app", SubjectSchema, []string{"a b"})
	assert.Error(t, err)

	_, err = CreateTableFile(migDir, "app", Subject("index"), nil)
	assert.Error(t, err)
}
