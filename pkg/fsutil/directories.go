// Package fsutil provides utility functions and constants for file system operations.
package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory and all necessary parent directories with default permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// IsDirEmpty reports whether dir exists and has no entries.
func IsDirEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// RemoveIfEmpty deletes dir when it is an empty directory. It reports whether the
// directory was removed. A missing directory is not an error.
func RemoveIfEmpty(dir string) (bool, error) {
	empty, err := IsDirEmpty(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !empty {
		return false, nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, nil
}

// IsWithin reports whether target lies inside root (or is root itself).
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
