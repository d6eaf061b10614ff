package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func baseConfig(dir string, daemonEnabled, cacheEnabled bool, backend string) string {
	return fmt.Sprintf(`default_provider: gemini
history:
  backend: %[4]s
  path: %[1]s/history.json
cache:
  enabled: %[3]t
  path: %[1]s/cache.json
daemon:
  enabled: %[2]t
  socket: %[1]s/d.sock
  pid_file: %[1]s/d.pid
  log_file: %[1]s/d.log
security:
  rules_file: %[1]s/rules.yaml
  watch_rules: false
`, dir, daemonEnabled, cacheEnabled, backend)
}

func TestBuildContainerWiresDaemonClient(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, baseConfig(dir, true, true, "file"))

	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, path, c.ConfigPath)
	assert.Equal(t, filepath.Join(dir, "d.sock"), c.Daemon.Socket())
	assert.NotNil(t, c.Pipeline.Cache)

	svc := c.QueryService(dir, nil, nil, nil)
	assert.NotNil(t, svc.Remote)
	assert.NotNil(t, svc.RemoteRecorder)
	assert.NotSame(t, c.Pipeline, svc.Local)

	server, err := c.DaemonServer()
	require.NoError(t, err)
	assert.NotNil(t, server)
}

func TestBuildContainerDirectOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, baseConfig(dir, false, false, "file"))

	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Pipeline.Cache)
	svc := c.QueryService(dir, nil, nil, nil)
	assert.Nil(t, svc.Remote)
	assert.Same(t, c.Pipeline, c.BatchService(nil).Generator)
}

func TestBuildContainerSQLiteHistory(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, baseConfig(dir, false, true, "sqlite"))

	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "history.db"), c.History.Path())
	require.NoError(t, c.Close())
}

func TestBuildContainerRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, baseConfig(dir, false, true, "mongo"))

	_, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	assert.ErrorContains(t, err, "invalid config")
}
