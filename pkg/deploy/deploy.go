// Package deploy copies the files of a package component into the extensions root
// and removes them again.
//
// Files the host may still hold open, loadable binary modules, are never overwritten
// or deleted in place. They are renamed to a backup name first and the backups are
// removed by the startup sweep once no process has them loaded any more.
package deploy

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/fsutil"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/modtable"
	"github.com/glorpus-work/extpack/pkg/platform"
)

// DefaultBackupSuffix is appended to modules renamed out of the way.
const DefaultBackupSuffix = ".backup"

// Archive is the read access the deployer needs into a package.
type Archive interface {
	Open(name string) (fs.File, error)
}

// Options configures a Deployer.
type Options struct {
	// Root is the extensions root; every component folder is a direct child.
	Root string
	// ModuleExtensions identify loadable binary modules.
	ModuleExtensions []string
	// BackupSuffix defaults to DefaultBackupSuffix.
	BackupSuffix string
	// Loaded marks additional files as in use. May be nil.
	Loaded *modtable.Table
}

// Report describes what happened to one component. Paths are relative to the
// component folder and use forward slashes.
type Report struct {
	Folder         string   `json:"folder"`
	Written        []string `json:"written,omitempty"`
	BackedUp       []string `json:"backedUp,omitempty"`
	Removed        []string `json:"removed,omitempty"`
	ModulesChanged bool     `json:"modulesChanged"`
}

// Merge appends the changes of other to r.
func (r *Report) Merge(other Report) {
	r.Written = append(r.Written, other.Written...)
	r.BackedUp = append(r.BackedUp, other.BackedUp...)
	r.Removed = append(r.Removed, other.Removed...)
	r.ModulesChanged = r.ModulesChanged || other.ModulesChanged
}

// Deployer installs and removes component files.
type Deployer struct {
	root   string
	exts   []string
	suffix string
	loaded *modtable.Table
	now    func() time.Time
}

// New creates a Deployer.
func New(opts Options) *Deployer {
	suffix := opts.BackupSuffix
	if suffix == "" {
		suffix = DefaultBackupSuffix
	}
	return &Deployer{
		root:   filepath.Clean(opts.Root),
		exts:   platform.NormalizeExtensions(opts.ModuleExtensions),
		suffix: suffix,
		loaded: opts.Loaded,
		now:    time.Now,
	}
}

// Root returns the extensions root.
func (d *Deployer) Root() string {
	return d.root
}

// ComponentDir returns the directory a component folder is installed into.
func (d *Deployer) ComponentDir(folder string) string {
	return filepath.Join(d.root, filepath.FromSlash(folder))
}

// ManifestPath returns where the manifest copy of a component folder lives.
func (d *Deployer) ManifestPath(folder string) string {
	return filepath.Join(d.ComponentDir(folder), manifest.FileName)
}

// IsModule reports whether rel needs lock-safe handling.
func (d *Deployer) IsModule(folder, rel string) bool {
	return platform.IsModuleFile(rel, d.exts) || d.loaded.IsLoaded(folder, rel)
}

// InstallComponent copies every file and folder of c from the archive and writes
// manifestRaw into the component folder. The first failure aborts the component and
// is returned together with what was done so far.
func (d *Deployer) InstallComponent(ctx context.Context, arc Archive, c manifest.Component, manifestRaw []byte) (Report, error) {
	report := Report{Folder: c.Folder}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	componentDir := d.ComponentDir(c.Folder)
	if err := d.checkWithin(componentDir); err != nil {
		return report, err
	}
	if err := fsutil.EnsureDir(componentDir); err != nil {
		return report, errutils.NewFileOperationError("mkdir", componentDir, err)
	}

	for _, entry := range c.InstallEntries() {
		localPath, err := d.localPath(c.Folder, entry.Path)
		if err != nil {
			return report, err
		}
		if entry.IsDir {
			if err := fsutil.EnsureDir(localPath); err != nil {
				return report, errutils.NewFileOperationError("mkdir", localPath, err)
			}
			continue
		}
		if err := d.installFile(arc, c.Folder, entry.Path, localPath, &report); err != nil {
			return report, err
		}
	}

	manifestPath := d.ManifestPath(c.Folder)
	if err := fsutil.WriteFileAtomic(manifestPath, manifestRaw, fsutil.FileModeDefault); err != nil {
		return report, errutils.NewFileOperationError("write", manifestPath, err)
	}
	report.Written = append(report.Written, manifest.FileName)

	logger.Debug("Installed component files", logger.Fields{
		"component": c.Folder,
		"written":   len(report.Written),
		"backed_up": len(report.BackedUp),
	})
	return report, nil
}

func (d *Deployer) installFile(arc Archive, folder, rel, localPath string, report *Report) error {
	module := d.IsModule(folder, rel)
	if module && fsutil.Exists(localPath) {
		backupPath, err := d.backup(localPath)
		if err != nil {
			return err
		}
		report.BackedUp = append(report.BackedUp, rel)
		logger.Debug("Moved module aside", logger.Fields{"file": localPath, "backup": backupPath})
	}

	archivePath := path.Join(folder, rel)
	src, err := arc.Open(archivePath)
	if err != nil {
		return errutils.NewFileOperationError("open", archivePath, err)
	}
	defer func() { _ = src.Close() }()

	if err := fsutil.WriteFrom(localPath, src, fsutil.FileModeDefault); err != nil {
		return errutils.NewFileOperationError("write", localPath, err)
	}
	report.Written = append(report.Written, rel)
	if module {
		report.ModulesChanged = true
	}
	logger.Debug("Wrote file", logger.Fields{"file": localPath, "module": module})
	return nil
}

// UninstallComponent removes every file and folder of c. Missing files are skipped.
// The manifest copy and the component folder stay until RemoveManifest, so that an
// interrupted uninstall can be retried.
func (d *Deployer) UninstallComponent(ctx context.Context, c manifest.Component) (Report, error) {
	report := Report{Folder: c.Folder}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := d.checkWithin(d.ComponentDir(c.Folder)); err != nil {
		return report, err
	}

	if err := d.removeEntries(c.Folder, c.InstallEntries(), &report); err != nil {
		return report, err
	}

	logger.Debug("Removed component files", logger.Fields{
		"component": c.Folder,
		"removed":   len(report.Removed),
		"backed_up": len(report.BackedUp),
	})
	return report, nil
}

// RemoveManifest removes the manifest copy of folder and then the folder itself when
// nothing is left in it. It is the last step of an uninstall.
func (d *Deployer) RemoveManifest(folder string) (Report, error) {
	report := Report{Folder: folder}
	componentDir := d.ComponentDir(folder)
	if err := d.checkWithin(componentDir); err != nil {
		return report, err
	}

	manifestPath := d.ManifestPath(folder)
	removed, err := fsutil.RemoveFile(manifestPath)
	if err != nil {
		return report, errutils.NewFileOperationError("remove", manifestPath, err)
	}
	if removed {
		report.Removed = append(report.Removed, manifest.FileName)
	}

	if _, err := fsutil.RemoveIfEmpty(componentDir); err != nil {
		return report, errutils.NewFileOperationError("rmdir", componentDir, err)
	}
	return report, nil
}

// RemoveItems removes the files and folders named by items, as listed in a cleanup
// section, from a component folder.
func (d *Deployer) RemoveItems(ctx context.Context, folder string, items []manifest.Item) (Report, error) {
	report := Report{Folder: folder}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	err := d.removeEntries(folder, manifest.WalkEntries(items), &report)
	return report, err
}

// PruneStale removes the entries the previously installed version of a component
// had and the incoming version no longer lists.
func (d *Deployer) PruneStale(ctx context.Context, previous, current manifest.Component) (Report, error) {
	report := Report{Folder: current.Folder}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	keep := make(map[string]struct{})
	for _, e := range current.InstallEntries() {
		keep[strings.ToLower(e.Path)] = struct{}{}
	}

	var stale []manifest.Entry
	for _, e := range previous.InstallEntries() {
		if _, ok := keep[strings.ToLower(e.Path)]; !ok {
			stale = append(stale, e)
		}
	}
	if len(stale) == 0 {
		return report, nil
	}

	logger.Debug("Pruning stale entries", logger.Fields{"component": current.Folder, "entries": len(stale)})
	err := d.removeEntries(current.Folder, stale, &report)
	return report, err
}

// removeEntries walks entries children first so that folders are only removed once
// they have been emptied. Folders that still hold anything are left in place.
func (d *Deployer) removeEntries(folder string, entries []manifest.Entry, report *Report) error {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		localPath, err := d.localPath(folder, entry.Path)
		if err != nil {
			return err
		}

		if entry.IsDir {
			removed, err := fsutil.RemoveIfEmpty(localPath)
			if err != nil {
				return errutils.NewFileOperationError("rmdir", localPath, err)
			}
			if removed {
				report.Removed = append(report.Removed, entry.Path)
			}
			continue
		}

		if d.IsModule(folder, entry.Path) {
			if !fsutil.Exists(localPath) {
				continue
			}
			backupPath, err := d.backup(localPath)
			if err != nil {
				return err
			}
			report.BackedUp = append(report.BackedUp, entry.Path)
			report.ModulesChanged = true
			logger.Debug("Moved module aside", logger.Fields{"file": localPath, "backup": backupPath})
			continue
		}

		removed, err := fsutil.RemoveFile(localPath)
		if err != nil {
			return errutils.NewFileOperationError("remove", localPath, err)
		}
		if removed {
			report.Removed = append(report.Removed, entry.Path)
			logger.Debug("Removed file", logger.Fields{"file": localPath})
		}
	}
	return nil
}

// backup renames file to file+suffix. A stale backup in the way is replaced; if it
// cannot be removed, because the host still has it open, a timestamped name that
// still carries the suffix is used instead.
func (d *Deployer) backup(file string) (string, error) {
	backupPath := file + d.suffix
	if fsutil.Exists(backupPath) {
		if err := os.Remove(backupPath); err != nil {
			backupPath = fmt.Sprintf("%s.%d%s", file, d.now().UnixNano(), d.suffix)
		}
	}
	if err := os.Rename(file, backupPath); err != nil {
		return "", errutils.NewFileOperationError("rename", file, err)
	}
	return backupPath, nil
}

func (d *Deployer) localPath(folder, rel string) (string, error) {
	if err := manifest.CheckPath(rel); err != nil {
		return "", err
	}
	p := filepath.Join(d.ComponentDir(folder), filepath.FromSlash(rel))
	if err := d.checkWithin(p); err != nil {
		return "", err
	}
	return p, nil
}

func (d *Deployer) checkWithin(p string) error {
	if p == d.root || !fsutil.IsWithin(d.root, p) {
		return fmt.Errorf("%w: %s is outside the extensions root %s", errutils.ErrInvalidPath, p, d.root)
	}
	return nil
}
