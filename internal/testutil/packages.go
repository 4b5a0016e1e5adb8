package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/extpack/pkg/archive"
	"github.com/glorpus-work/extpack/pkg/manifest"
)

// WriteTree writes files (slash-separated names) below dir.
func WriteTree(t testing.TB, dir string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, content, 0o644))
	}
}

// BuildPackage writes the manifest and files into a fresh directory and packs it as a zip
// file. An empty manifest leaves extension.json out. It returns the archive path.
func BuildPackage(t testing.TB, manifestJSON string, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "source")
	require.NoError(t, os.MkdirAll(source, 0o755))

	all := make(map[string][]byte, len(files)+1)
	for name, content := range files {
		all[name] = content
	}
	if manifestJSON != "" {
		all[manifest.FileName] = []byte(manifestJSON)
	}
	WriteTree(t, source, all)

	archivePath := filepath.Join(root, "package.zip")
	require.NoError(t, archive.Create(context.Background(), source, archivePath))
	return archivePath
}

// OpenPackage builds a package and opens it. The archive is closed when the test ends.
func OpenPackage(t testing.TB, manifestJSON string, files map[string][]byte) *archive.Archive {
	t.Helper()
	arc, err := archive.Open(context.Background(), BuildPackage(t, manifestJSON, files))
	require.NoError(t, err)
	t.Cleanup(func() { _ = arc.Close() })
	return arc
}
