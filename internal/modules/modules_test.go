package modules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestResolveRelativeToImporter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app", "shapes.hl"), "")
	importer := filepath.Join(dir, "app", "main.hl")

	l := NewLoader()
	got, err := l.Resolve("shapes.hl", importer)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app", "shapes.hl"), got)

	got, err = l.Resolve("shapes", importer)
	require.NoError(t, err, "extension is optional")
	assert.Equal(t, filepath.Join(dir, "app", "shapes.hl"), got)
}

func TestResolveSearchesLibraryPaths(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	writeFile(t, filepath.Join(lib, "net.hl"), "")

	l := NewLoader(lib)
	got, err := l.Resolve("net.hl", filepath.Join(dir, "app", "main.hl"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib, "net.hl"), got)

	_, err = l.Resolve("missing.hl", filepath.Join(dir, "main.hl"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBeginIsIdempotent(t *testing.T) {
	l := NewLoader()
	first, err := l.Begin("/x/a.hl")
	require.NoError(t, err)
	assert.True(t, first)
	l.Finish("/x/a.hl", nil)

	again, err := l.Begin("/x/a.hl")
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, []string{"/x/a.hl"}, l.Loaded())
}

func TestBeginDetectsCycle(t *testing.T) {
	l := NewLoader()
	_, err := l.Begin("/x/a.hl")
	require.NoError(t, err)
	_, err = l.Begin("/x/b.hl")
	require.NoError(t, err)

	_, err = l.Begin("/x/a.hl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.hl -> b.hl -> a.hl")
}

func TestFailedLoadCanRetry(t *testing.T) {
	l := NewLoader()
	_, err := l.Begin("/x/a.hl")
	require.NoError(t, err)
	l.Finish("/x/a.hl", errors.New("boom"))

	first, err := l.Begin("/x/a.hl")
	require.NoError(t, err)
	assert.True(t, first)
}
