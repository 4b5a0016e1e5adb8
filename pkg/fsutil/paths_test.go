package fsutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaths(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG variables only apply on Linux and the BSDs")
	}
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	dataDir, err := GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "data", AppName), dataDir)

	extDir, err := GetExtensionsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "data", AppName, "extensions"), extDir)

	registryPath, err := GetRegistryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "state", AppName, "registry.json"), registryPath)
}
