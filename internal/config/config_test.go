package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `[run]
log_level = "debug"
check_only = true

[imports]
paths = ["lib", "/opt/humanlang"]

[timeouts]
default = "2s"
http = "500ms"

[repl]
history_file = ""
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Run.LogLevel)
	assert.True(t, c.Run.CheckOnly)
	assert.Equal(t, []string{filepath.Join(c.Dir, "lib"), "/opt/humanlang"}, c.ImportPaths())

	assert.Equal(t, 500*time.Millisecond, c.Timeouts.For("http"))
	assert.Equal(t, 4*time.Second, c.Timeouts.For("ping"), "unset keys keep their defaults")
	assert.Equal(t, 2*time.Second, c.Timeouts.For("default"))
	assert.Equal(t, 2*time.Second, c.Timeouts.For("unknown"))
	assert.Zero(t, c.Timeouts.For(""), "self-bounded operations get no limit")
	assert.Empty(t, c.HistoryPath())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[timeouts]\nhttp = \"soon\"\n"), 0644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[run]\nlog_level = \"info\"\n"), 0644))

	c, err := FindAndLoad(sub)
	require.NoError(t, err)
	assert.Equal(t, "info", c.Run.LogLevel)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, c.Dir)
}

func TestFindAndLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, "none", c.Run.LogLevel)
	assert.Equal(t, 15*time.Second, c.Timeouts.For("http"))

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, c.Dir)
}

func TestHistoryPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	c := Default()
	assert.Equal(t, filepath.Join(home, ".humanlang_history"), c.HistoryPath())
}
