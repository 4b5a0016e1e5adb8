// Package verifier checks that a package archive actually contains everything its
// manifest references and that installing it would not downgrade a module on disk.
package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/modver"
	"github.com/glorpus-work/extpack/pkg/platform"
	"github.com/glorpus-work/extpack/pkg/validation"
	"github.com/glorpus-work/extpack/pkg/version"
)

const unversioned = "0.0.0.0"

// Archive is the read access the verifier needs into a package.
type Archive interface {
	Has(name string) bool
	HasFile(name string) bool
	Open(name string) (fs.File, error)
}

// VersionReader reads the embedded version of a binary module.
type VersionReader interface {
	ReadVersion(ctx context.Context, name string, r io.ReaderAt, size int64) (string, error)
}

// Verifier compares a manifest with the archive it came in and the extensions root.
type Verifier struct {
	root       string
	moduleExts []string
	versions   VersionReader
}

// New creates a Verifier for packages installed below root. An empty root or a nil
// versions disables the downgrade check.
func New(root string, moduleExts []string, versions VersionReader) *Verifier {
	return &Verifier{
		root:       root,
		moduleExts: platform.NormalizeExtensions(moduleExts),
		versions:   versions,
	}
}

// VerifyComponents reports one issue per missing archive entry, per missing hook script
// and per module that would be downgraded. It never stops at the first problem.
func (v *Verifier) VerifyComponents(ctx context.Context, arc Archive, m *manifest.Manifest) validation.Result {
	var res validation.Result
	for _, c := range m.Components {
		res.Merge(v.verifyComponent(ctx, arc, c))
	}

	logger.Debug("Verified package contents", logger.Fields{
		"package": m.Name,
		"issues":  len(res.Issues),
	})
	return res
}

func (v *Verifier) verifyComponent(ctx context.Context, arc Archive, c manifest.Component) validation.Result {
	var res validation.Result

	for _, entry := range c.Entries() {
		archivePath := path.Join(c.Folder, entry.Path)
		present := arc.HasFile(archivePath)
		if entry.IsDir {
			present = arc.Has(archivePath)
		}
		if !present {
			kind := "file"
			if entry.IsDir {
				kind = "folder"
			}
			res.Add(validation.Issue{
				Code:      validation.CodeArchiveMissing,
				Message:   fmt.Sprintf("%s %s is listed in the manifest but missing from the package", kind, archivePath),
				Path:      entry.Path,
				Component: c.Folder,
			})
			continue
		}

		if !entry.IsDir && platform.IsModuleFile(entry.Path, v.moduleExts) {
			if issue, ok := v.checkDowngrade(ctx, arc, c.Folder, entry.Path); ok {
				res.Add(issue)
			}
		}
	}

	if c.Hooks != nil {
		for _, hook := range []string{c.Hooks.PostInstall, c.Hooks.PreUninstall} {
			if hook == "" || arc.HasFile(path.Join(c.Folder, hook)) {
				continue
			}
			res.Add(validation.Issue{
				Code:      validation.CodeHookMissing,
				Message:   fmt.Sprintf("hook script %s is missing from the package", path.Join(c.Folder, hook)),
				Path:      hook,
				Component: c.Folder,
			})
		}
	}
	return res
}

// checkDowngrade compares the incoming module with the copy already installed at the
// same path. An incoming module without version metadata counts as 0.0.0.0; the check
// is skipped when the installed copy has none.
func (v *Verifier) checkDowngrade(ctx context.Context, arc Archive, folder, rel string) (validation.Issue, bool) {
	if v.root == "" || v.versions == nil {
		return validation.Issue{}, false
	}
	localPath := filepath.Join(v.root, folder, filepath.FromSlash(rel))
	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		return validation.Issue{}, false
	}

	archivePath := path.Join(folder, rel)
	moduleIssue := func(format string, args ...interface{}) (validation.Issue, bool) {
		return validation.Issue{
			Code:      validation.CodeModuleVersion,
			Message:   fmt.Sprintf(format, args...),
			Path:      rel,
			Component: folder,
		}, true
	}

	data, err := readModule(arc, archivePath)
	if err != nil {
		return moduleIssue("failed to read module %s from the package: %v", archivePath, err)
	}

	incoming, err := v.versions.ReadVersion(ctx, archivePath, bytes.NewReader(data), int64(len(data)))
	switch {
	case errors.Is(err, errutils.ErrNoVersion):
		logger.Debug("Incoming module has no version, treating it as 0.0.0.0", logger.Fields{"module": archivePath})
		incoming = unversioned
	case err != nil:
		return moduleIssue("%s", err.Error())
	}

	installed, err := v.readInstalled(ctx, localPath, info.Size())
	if err != nil {
		logger.Warn("Installed module version unreadable, skipping downgrade check", logger.Fields{
			"module": localPath,
			"error":  err,
		})
		return validation.Issue{}, false
	}

	cmp, err := version.Compare(installed, incoming)
	if err != nil || cmp <= 0 {
		return validation.Issue{}, false
	}
	return validation.Issue{
		Code: validation.CodeModuleDowngrade,
		Message: fmt.Sprintf("module %s is installed at version %s, the package contains the older version %s",
			archivePath, installed, incoming),
		Path:      rel,
		Component: folder,
	}, true
}

// readModule reads a module from the package, refusing entries larger than
// modver.MaxModuleSize before any of it is buffered.
func readModule(arc Archive, name string) ([]byte, error) {
	f, err := arc.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > modver.MaxModuleSize {
		return nil, fmt.Errorf("%d bytes, larger than the %d byte inspection limit", info.Size(), modver.MaxModuleSize)
	}
	return io.ReadAll(io.LimitReader(f, modver.MaxModuleSize+1))
}

func (v *Verifier) readInstalled(ctx context.Context, localPath string, size int64) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return v.versions.ReadVersion(ctx, localPath, f, size)
}
