package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "newdir")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "parent", "child", "nested")
			},
		},
		{
			name: "succeeds when directory already exists",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			path := testCase.setup(t)

			require.NoError(t, EnsureDir(path))
			assert.DirExists(t, path)

			// Verify permissions (only check on Unix-like systems)
			if runtime.GOOS != "windows" && path != "" {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.True(t, info.IsDir())
			}
		})
	}
}

func TestEnsureFileDir(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "nested", "parent", "file.txt")

	require.NoError(t, EnsureFileDir(filePath))
	assert.DirExists(t, filepath.Dir(filePath))
	assert.NoFileExists(t, filePath)
}

func TestEnsureDir_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("Skipping permission test on Windows or as root")
	}

	readonlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readonlyDir, 0o555))

	err := EnsureDir(filepath.Join(readonlyDir, "shouldfail"))
	assert.Error(t, err)
}

func TestRemoveIfEmpty(t *testing.T) {
	root := t.TempDir()

	empty := filepath.Join(root, "empty")
	require.NoError(t, os.Mkdir(empty, DirModeDefault))

	full := filepath.Join(root, "full")
	require.NoError(t, os.Mkdir(full, DirModeDefault))
	require.NoError(t, os.WriteFile(filepath.Join(full, "keep.txt"), []byte("x"), FileModeDefault))

	removed, err := RemoveIfEmpty(empty)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoDirExists(t, empty)

	removed, err = RemoveIfEmpty(full)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.DirExists(t, full)

	removed, err = RemoveIfEmpty(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "extensions")

	assert.True(t, IsWithin(root, root))
	assert.True(t, IsWithin(root, filepath.Join(root, "MyExt", "bin")))
	assert.True(t, IsWithin(root, filepath.Join(root, "..foo")))
	assert.False(t, IsWithin(root, filepath.Join(root, "..", "other")))
	assert.False(t, IsWithin(root, filepath.Dir(root)))
}
