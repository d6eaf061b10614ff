package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"v":1}`), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"v":2}`), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomicFailsOnReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	err := WriteFileAtomic(filepath.Join(dir, "state.json"), []byte("x"), 0o600)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	assert.Equal(t, "/fallback", ExpandPath("", "/fallback"))
	assert.Equal(t, "/home/tester/.askai/x", ExpandPath("~/.askai/x", ""))
	assert.Equal(t, "/etc/askai", ExpandPath("/etc//askai/", ""))
	assert.Equal(t, "/home/tester/.askai/cache.json", StatePath("cache.json"))
}
