package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/deploy"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/fsutil"
	"github.com/glorpus-work/extpack/pkg/hooks"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/metrics"
	"github.com/glorpus-work/extpack/pkg/sweep"
)

// Uninstall removes the package installed into folder, using the manifest copy kept
// there. Every component of that package is removed, not only folder.
func (i *Installer) Uninstall(ctx context.Context, folder string) (*Result, error) {
	if err := manifest.CheckPath(folder); err != nil || strings.Contains(folder, "/") {
		if err == nil {
			err = fmt.Errorf("%w: %q is not a component folder", errutils.ErrInvalidPath, folder)
		}
		i.record(opUninstall, time.Now(), nil, err)
		return nil, err
	}

	m, err := manifest.LoadInstalled(i.deployer.ManifestPath(folder))
	if err != nil {
		if errors.Is(err, errutils.ErrManifestNotFound) {
			err = fmt.Errorf("%s: %w", folder, errutils.ErrNotInstalled)
		}
		i.record(opUninstall, time.Now(), nil, err)
		return nil, err
	}
	return i.UninstallManifest(ctx, m)
}

// UninstallManifest removes every component of m: the preUninstall hook runs, the
// files are removed, the definitions deregistered and the cleanup sections applied.
// The manifest copies go last, once every component is done, so a failed uninstall
// can be run again.
func (i *Installer) UninstallManifest(ctx context.Context, m *manifest.Manifest) (res *Result, err error) {
	start := time.Now()
	defer func() { i.record(opUninstall, start, res, err) }()

	res = &Result{}
	res.setPackage(m)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	mctx := context.WithoutCancel(ctx)

	for _, c := range m.Components {
		cr, err := i.uninstallComponent(mctx, m, c)
		res.add(cr)
		if err != nil {
			i.emit(PhaseError, c.Folder, err.Error())
			return res, errutils.Wrapf(err, "failed to uninstall component %s", c.Folder)
		}
	}
	for idx, c := range m.Components {
		report, err := i.deployer.RemoveManifest(c.Folder)
		i.merge(&res.Components[idx], report)
		if err != nil {
			i.emit(PhaseError, c.Folder, err.Error())
			return res, errutils.Wrapf(err, "failed to uninstall component %s", c.Folder)
		}
	}

	res.Success = true
	logger.Info("Uninstalled package", logger.Fields{
		"package":          m.Name,
		"id":               m.ID.String(),
		"components":       len(m.Components),
		"restart_required": res.RestartRequired,
	})
	i.emit(PhaseDone, "", fmt.Sprintf("uninstalled %s", m.Name))
	return res, nil
}

func (i *Installer) uninstallComponent(ctx context.Context, m *manifest.Manifest, c manifest.Component) (ComponentResult, error) {
	cr := ComponentResult{Report: deploy.Report{Folder: c.Folder}}

	if err := i.runHook(ctx, m, c, hooks.PreUninstall); err != nil {
		return cr, err
	}

	i.emit(PhaseRemoving, c.Folder, "removing files")
	report, err := i.deployer.UninstallComponent(ctx, c)
	i.merge(&cr, report)
	if err != nil {
		return cr, err
	}

	counts, err := i.registrar.DeregisterComponent(ctx, c)
	cr.Deregistered += counts.Deregistered
	if err != nil {
		return cr, err
	}

	err = i.cleanup(ctx, c, &cr)
	return cr, err
}

// List reports every component folder below the extensions root that holds a
// manifest copy, sorted by folder name. Folders whose manifest cannot be read are
// listed with Error set.
func (i *Installer) List() ([]Installed, error) {
	entries, err := os.ReadDir(i.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errutils.Wrapf(err, "failed to read extensions root %s", i.root)
	}

	var out []Installed
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := i.deployer.ManifestPath(entry.Name())
		if !fsutil.Exists(manifestPath) {
			continue
		}

		item := Installed{Folder: entry.Name()}
		m, err := manifest.LoadInstalled(manifestPath)
		if err != nil {
			item.Error = err.Error()
			out = append(out, item)
			continue
		}
		item.PackageID = m.ID
		item.PackageName = m.Name
		item.PackageVersion = m.Version
		if c, ok := m.Component(entry.Name()); ok {
			for _, e := range c.Entries() {
				if !e.IsDir {
					item.Files++
				}
			}
			item.Definitions = c.Definitions().Len()
		}
		out = append(out, item)
	}
	return out, nil
}

// Startup removes the module backups and empty folders earlier runs left behind. It
// must run before the host loads any extension.
func (i *Installer) Startup(ctx context.Context) sweep.Report {
	start := time.Now()
	report := sweep.Sweep(ctx, i.root, i.opts.BackupSuffix)

	for range report.Files {
		i.metrics.IncSwept("file")
	}
	for range report.Dirs {
		i.metrics.IncSwept("dir")
	}
	outcome := metrics.OutcomeSuccess
	if len(report.Failures) > 0 {
		outcome = metrics.OutcomeError
	}
	i.metrics.IncOperation(opSweep, outcome)
	i.metrics.ObserveDuration(opSweep, time.Since(start).Seconds())

	logger.Info("Swept extensions root", logger.Fields{
		"root":     i.root,
		"files":    len(report.Files),
		"dirs":     len(report.Dirs),
		"failures": len(report.Failures),
	})
	return report
}
