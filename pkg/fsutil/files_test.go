package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrom(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "file.txt")

	require.NoError(t, WriteFrom(target, strings.NewReader("first"), 0))
	require.NoError(t, WriteFrom(target, strings.NewReader("2nd"), FileModeDefault))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "2nd", string(content), "existing content must be truncated")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(FileModeDefault), info.Mode().Perm()&^0o022)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state", "registry.json")

	require.NoError(t, WriteFileAtomic(target, []byte(`{"a":1}`), FileModeSecure))
	require.NoError(t, WriteFileAtomic(target, []byte(`{"a":2}`), FileModeSecure))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(content))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), FileModeDefault))

	removed, err := RemoveFile(path)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, Exists(path))

	removed, err = RemoveFile(path)
	require.NoError(t, err)
	assert.False(t, removed)
}
