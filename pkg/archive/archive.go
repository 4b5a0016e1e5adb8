// Package archive provides read access to extension packages and a helper to create them.
//
// Packages are any format recognised by mholt/archives (zip, tar.gz, ...) or a plain
// directory. Entries are addressed by forward-slash paths compared case-insensitively.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archives"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/fsutil"
)

// Archive is an opened extension package.
type Archive struct {
	path   string
	fsys   fs.FS
	closer io.Closer
	// files and dirs map the lower-cased, slash-separated entry name to the name inside fsys.
	files map[string]string
	dirs  map[string]string
}

// Open opens the package at archivePath and indexes its entries.
func Open(ctx context.Context, archivePath string) (*Archive, error) {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file %s: %w", archivePath, err)
	}

	a := &Archive{
		path:  archivePath,
		fsys:  fsys,
		files: make(map[string]string),
		dirs:  make(map[string]string),
	}
	if closer, ok := fsys.(io.Closer); ok {
		a.closer = closer
	}

	if err := a.index(); err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Debug("Opened package", logger.Fields{
		"path":    archivePath,
		"files":   len(a.files),
		"folders": len(a.dirs),
	})
	return a, nil
}

func (a *Archive) index() error {
	walkFn := func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		key := Normalize(name)
		if d.IsDir() {
			a.dirs[key] = name
			return nil
		}
		a.files[key] = name
		// zip files do not always carry explicit directory entries
		for dir := path.Dir(key); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if _, ok := a.dirs[dir]; ok {
				break
			}
			a.dirs[dir] = dir
		}
		return nil
	}

	if err := fs.WalkDir(a.fsys, ".", walkFn); err != nil {
		return fmt.Errorf("failed to read archive %s: %w", a.path, err)
	}
	return nil
}

// Close releases the underlying archive.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Path returns the location the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Has reports whether a file or folder exists at name.
func (a *Archive) Has(name string) bool {
	key := Normalize(name)
	if _, ok := a.files[key]; ok {
		return true
	}
	_, ok := a.dirs[key]
	return ok
}

// HasFile reports whether a regular file exists at name.
func (a *Archive) HasFile(name string) bool {
	_, ok := a.files[Normalize(name)]
	return ok
}

// Open opens the file at name.
func (a *Archive) Open(name string) (fs.File, error) {
	actual, ok := a.files[Normalize(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return a.fsys.Open(actual)
}

// ReadFile returns the contents of the file at name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from archive: %w", name, err)
	}
	return data, nil
}

// Files returns the names of all file entries, sorted.
func (a *Archive) Files() []string {
	names := make([]string, 0, len(a.files))
	for _, actual := range a.files {
		names = append(names, actual)
	}
	sort.Strings(names)
	return names
}

// Normalize turns an entry name into its lookup key: forward slashes, no leading
// "./" or "/", lower case.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.ToLower(strings.TrimPrefix(name, "/"))
}

// Create packs sourceDir into archivePath. The format follows the file extension:
// ".zip" produces a zip file, anything else a gzip-compressed tarball.
func Create(ctx context.Context, sourceDir, archivePath string) (err error) {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}
	info, err := os.Stat(absolutePath)
	if err != nil {
		return fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory: %w", sourceDir, fs.ErrInvalid)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	if err := fsutil.EnsureFileDir(archivePath); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", archivePath, cerr)
		}
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()

	var format archives.Archiver
	if strings.EqualFold(filepath.Ext(archivePath), ".zip") {
		format = archives.Zip{}
	} else {
		format = archives.CompressedArchive{
			Compression: archives.Gz{},
			Archival:    archives.Tar{},
		}
	}

	if err := format.Archive(ctx, file, archiveFiles); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return file.Sync()
}

// IsNotExist reports whether err means an entry is absent from the archive.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
