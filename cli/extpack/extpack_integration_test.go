//go:build integration

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/extpack/internal/testutil"
	"github.com/glorpus-work/extpack/pkg/config"
	"github.com/glorpus-work/extpack/pkg/errutils"
)

const testManifest = `{
  "id": "11111111-1111-1111-1111-111111111111",
  "name": "My Extension",
  "version": "1.0.0.0",
  "compatibility": { "minVersion": "1.0" },
  "components": [
    {
      "folder": "MyExt",
      "items": [
        { "file": { "path": "MyExt.mod" } },
        { "folder": { "path": "sub", "items": [ { "file": { "path": "file.txt" } } ] } },
        { "moduleDefinition": { "id": "22222222-2222-2222-2222-222222222222", "name": "My Module", "type": "MyExt.Module" } }
      ]
    }
  ]
}`

type env struct {
	dir        string
	configPath string
	root       string
	metrics    string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		root:       filepath.Join(dir, "extensions"),
		metrics:    filepath.Join(dir, "extpack.prom"),
	}

	cfg := config.DefaultConfig()
	cfg.Settings.ExtensionsRoot = e.root
	cfg.Settings.HostVersion = "1.5.0.0"
	cfg.Settings.ModuleExtensions = []string{".mod"}
	cfg.Settings.LogLevel = "error"
	cfg.Registry.Path = filepath.Join(dir, "registry.json")
	cfg.Metrics.Textfile = e.metrics
	require.NoError(t, cfg.SaveConfig(e.configPath))
	return e
}

func run(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func sourceTree(t *testing.T, dir string, withFile bool) string {
	t.Helper()
	source := filepath.Join(dir, "source")
	files := map[string][]byte{
		"extension.json":  []byte(testManifest),
		"MyExt/MyExt.mod": testutil.NativeModule("1.0.0.0"),
	}
	if withFile {
		files["MyExt/sub/file.txt"] = []byte("Hello World")
	}
	testutil.WriteTree(t, source, files)
	return source
}

func TestPackInstallListUninstall(t *testing.T) {
	e := setupEnv(t)
	pkg := filepath.Join(e.dir, "myext.zip")

	_, err := run(t, e, "pack", sourceTree(t, e.dir, true), pkg)
	require.NoError(t, err)
	require.FileExists(t, pkg)

	out, err := run(t, e, "validate", pkg)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid My Extension")

	out, err = run(t, e, "install", pkg)
	require.NoError(t, err)
	assert.Contains(t, out, "Installed My Extension")
	assert.Contains(t, out, "Restart the host")
	assert.FileExists(t, filepath.Join(e.root, "MyExt", "sub", "file.txt"))
	assert.FileExists(t, filepath.Join(e.root, "MyExt", "extension.json"))

	out, err = run(t, e, "-o", "json", "list", "--definitions")
	require.NoError(t, err)
	var listed struct {
		Installed []struct {
			Folder      string `json:"folder"`
			PackageName string `json:"packageName"`
		} `json:"installed"`
		Modules []struct {
			ID        string `json:"id"`
			Component string `json:"component"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Installed, 1)
	assert.Equal(t, "MyExt", listed.Installed[0].Folder)
	require.Len(t, listed.Modules, 1)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", listed.Modules[0].ID)

	_, err = run(t, e, "uninstall", "MyExt")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(e.root, "MyExt", "MyExt.mod.backup"))

	out, err = run(t, e, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 backup(s) and 1 empty folder(s)")
	assert.NoDirExists(t, filepath.Join(e.root, "MyExt"))

	metrics, err := os.ReadFile(e.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "extpack_operations_total")
}

func TestInstallReportsValidationIssues(t *testing.T) {
	e := setupEnv(t)
	pkg := testutil.BuildPackage(t, testManifest, map[string][]byte{
		"MyExt/MyExt.mod": testutil.NativeModule("1.0.0.0"),
	})

	out, err := run(t, e, "install", pkg)
	require.ErrorIs(t, err, errutils.ErrValidation)
	assert.Contains(t, out, "archive.missing [MyExt] sub/file.txt")
	assert.NoDirExists(t, e.root)
}

func TestPackRejectsIncompleteSource(t *testing.T) {
	e := setupEnv(t)
	pkg := filepath.Join(e.dir, "broken.zip")

	_, err := run(t, e, "pack", sourceTree(t, e.dir, false), pkg)
	require.ErrorIs(t, err, errutils.ErrValidation)
	assert.NoFileExists(t, pkg)
}

func TestUninstallUnknownFolder(t *testing.T) {
	e := setupEnv(t)
	_, err := run(t, e, "uninstall", "Nothing")
	assert.ErrorIs(t, err, errutils.ErrNotInstalled)
}

func TestConfigCommands(t *testing.T) {
	e := setupEnv(t)

	_, err := run(t, e, "config", "set", "host_version", "2.0")
	require.NoError(t, err)

	out, err := run(t, e, "config", "get", "host_version")
	require.NoError(t, err)
	assert.Equal(t, "2.0\n", out)

	_, err = run(t, e, "config", "set", "registry.backend", "carrier-pigeon")
	assert.Error(t, err)

	_, err = run(t, e, "config", "init")
	assert.ErrorIs(t, err, errutils.ErrConfigFileExists)
}

func TestVersion(t *testing.T) {
	e := setupEnv(t)
	out, err := run(t, e, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "extpack version")
}
