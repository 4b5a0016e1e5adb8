// Package installer validates extension packages and installs them into, or removes
// them from, the extensions root and the host registry.
//
// Nothing is written while a package has validation issues. Once writing starts the
// components are applied in manifest order and the first failure stops the run;
// components already applied stay in place.
package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/archive"
	"github.com/glorpus-work/extpack/pkg/deploy"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/fsutil"
	"github.com/glorpus-work/extpack/pkg/hooks"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/metrics"
	"github.com/glorpus-work/extpack/pkg/modtable"
	"github.com/glorpus-work/extpack/pkg/modver"
	"github.com/glorpus-work/extpack/pkg/platform"
	"github.com/glorpus-work/extpack/pkg/registrar"
	"github.com/glorpus-work/extpack/pkg/registry"
	"github.com/glorpus-work/extpack/pkg/validation"
	"github.com/glorpus-work/extpack/pkg/verifier"
)

// Installer ties validation, file deployment and registration together.
type Installer struct {
	opts Options
	root string

	validator *manifest.Validator
	verifier  *verifier.Verifier
	deployer  *deploy.Deployer
	registrar *registrar.Registrar

	hooks    hooks.Executor
	metrics  metrics.Metrics
	loaded   *modtable.Table
	versions verifier.VersionReader
	onEvent  func(Event)
}

// New creates an Installer writing definitions to reg.
func New(opts Options, reg registry.Registry, options ...Option) (*Installer, error) {
	if opts.ExtensionsRoot == "" {
		return nil, errutils.ErrExtensionsRootEmpty
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: no registry configured", errutils.ErrRegistryUnavailable)
	}

	root, err := filepath.Abs(opts.ExtensionsRoot)
	if err != nil {
		return nil, errutils.Wrapf(err, "failed to resolve extensions root %s", opts.ExtensionsRoot)
	}
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = deploy.DefaultBackupSuffix
	}
	if len(opts.ModuleExtensions) == 0 {
		opts.ModuleExtensions = platform.DefaultModuleExtensions(runtime.GOOS)
	}

	i := &Installer{
		opts:     opts,
		root:     root,
		hooks:    hooks.NewTengoExecutor(),
		metrics:  metrics.Noop{},
		versions: modver.NewInspector(),
	}
	for _, option := range options {
		option(i)
	}
	if i.metrics == nil {
		i.metrics = metrics.Noop{}
	}

	i.validator = manifest.NewValidator(opts.HostVersion)
	i.verifier = verifier.New(root, opts.ModuleExtensions, i.versions)
	i.deployer = deploy.New(deploy.Options{
		Root:             root,
		ModuleExtensions: opts.ModuleExtensions,
		BackupSuffix:     opts.BackupSuffix,
		Loaded:           i.loaded,
	})
	i.registrar = registrar.New(reg)
	return i, nil
}

// Root returns the absolute extensions root.
func (i *Installer) Root() string {
	return i.root
}

// Validate runs every check Install runs without changing anything.
func (i *Installer) Validate(ctx context.Context, archivePath string) (res *Result, err error) {
	start := time.Now()
	defer func() { i.record(opValidate, start, res, err) }()

	arc, err := archive.Open(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = arc.Close() }()

	m, vres := i.validate(ctx, arc)
	res = &Result{Validation: vres, Success: vres.Valid()}
	res.setPackage(m)
	return res, nil
}

// Install validates the package at archivePath and, when it has no issues, installs
// every component. Validation issues are reported through the result with a nil
// error; only I/O and registry failures are returned as errors.
func (i *Installer) Install(ctx context.Context, archivePath string) (*Result, error) {
	arc, err := archive.Open(ctx, archivePath)
	if err != nil {
		i.record(opInstall, time.Now(), nil, err)
		return nil, err
	}
	defer func() { _ = arc.Close() }()

	return i.InstallArchive(ctx, arc)
}

// InstallArchive installs from an already opened package.
func (i *Installer) InstallArchive(ctx context.Context, arc Archive) (res *Result, err error) {
	start := time.Now()
	defer func() { i.record(opInstall, start, res, err) }()

	m, vres := i.validate(ctx, arc)
	res = &Result{Validation: vres}
	res.setPackage(m)
	if !vres.Valid() {
		logger.Warn("Package failed validation", logger.Fields{
			"package": res.PackageName,
			"issues":  len(vres.Issues),
		})
		i.emit(PhaseError, "", fmt.Sprintf("%d validation issue(s)", len(vres.Issues)))
		return res, nil
	}

	// Cancellation is only honoured up to here.
	if err := ctx.Err(); err != nil {
		return res, err
	}
	mctx := context.WithoutCancel(ctx)

	for _, c := range m.Components {
		cr, err := i.installComponent(mctx, arc, m, c)
		res.add(cr)
		if err != nil {
			i.emit(PhaseError, c.Folder, err.Error())
			return res, errutils.Wrapf(err, "failed to install component %s", c.Folder)
		}
	}

	res.Success = true
	logger.Info("Installed package", logger.Fields{
		"package":          m.Name,
		"id":               m.ID.String(),
		"components":       len(m.Components),
		"restart_required": res.RestartRequired,
	})
	i.emit(PhaseDone, "", fmt.Sprintf("installed %s", m.Name))
	return res, nil
}

func (i *Installer) validate(ctx context.Context, arc Archive) (*manifest.Manifest, validation.Result) {
	i.emit(PhaseValidating, "", "checking manifest")
	m, res := i.validator.ParseAndValidate(arc)
	if m == nil || !res.Valid() {
		return m, res
	}

	i.emit(PhaseValidating, "", "checking package contents")
	res.Merge(i.verifier.VerifyComponents(ctx, arc, m))
	return m, res
}

func (i *Installer) installComponent(ctx context.Context, arc Archive, m *manifest.Manifest, c manifest.Component) (ComponentResult, error) {
	cr := ComponentResult{Report: deploy.Report{Folder: c.Folder}}

	if i.opts.PruneStale {
		if err := i.pruneStale(ctx, c, &cr); err != nil {
			return cr, err
		}
	}
	if err := i.cleanup(ctx, c, &cr); err != nil {
		return cr, err
	}

	i.emit(PhaseCopying, c.Folder, "copying files")
	report, err := i.deployer.InstallComponent(ctx, arc, c, m.Raw())
	i.merge(&cr, report)
	if err != nil {
		return cr, err
	}

	if err := i.runHook(ctx, m, c, hooks.PostInstall); err != nil {
		return cr, err
	}

	i.emit(PhaseRegistering, c.Folder, "registering definitions")
	counts, err := i.registrar.RegisterComponent(ctx, m.ID, c)
	cr.Registered += counts.Registered
	return cr, err
}

// pruneStale compares c with the manifest copy the previous install left in the
// component folder.
func (i *Installer) pruneStale(ctx context.Context, c manifest.Component, cr *ComponentResult) error {
	prev, err := manifest.LoadInstalled(i.deployer.ManifestPath(c.Folder))
	if err != nil {
		if !errors.Is(err, errutils.ErrManifestNotFound) {
			logger.Warn("Ignoring unreadable installed manifest", logger.Fields{
				"component": c.Folder,
				"error":     err.Error(),
			})
		}
		return nil
	}
	previous, ok := prev.Component(c.Folder)
	if !ok {
		return nil
	}

	i.emit(PhasePruning, c.Folder, "removing entries the new version no longer lists")
	report, err := i.deployer.PruneStale(ctx, previous, c)
	i.merge(cr, report)
	if err != nil {
		return err
	}
	counts, err := i.registrar.DeregisterStale(ctx, previous, c)
	cr.Deregistered += counts.Deregistered
	return err
}

func (i *Installer) cleanup(ctx context.Context, c manifest.Component, cr *ComponentResult) error {
	items := c.CleanupItems()
	if len(items) == 0 {
		return nil
	}

	i.emit(PhaseCleanup, c.Folder, "applying cleanup section")
	report, err := i.deployer.RemoveItems(ctx, c.Folder, items)
	i.merge(cr, report)
	if err != nil {
		return err
	}
	counts, err := i.registrar.DeregisterItems(ctx, items)
	cr.Deregistered += counts.Deregistered
	return err
}

func (i *Installer) runHook(ctx context.Context, m *manifest.Manifest, c manifest.Component, hook hooks.HookType) error {
	if i.hooks == nil || c.Hooks == nil {
		return nil
	}

	script := c.Hooks.PostInstall
	operation := hooks.OperationInstall
	if hook == hooks.PreUninstall {
		script = c.Hooks.PreUninstall
		operation = hooks.OperationUninstall
	}
	if script == "" {
		return nil
	}

	componentDir := i.deployer.ComponentDir(c.Folder)
	scriptPath := filepath.Join(componentDir, filepath.FromSlash(script))
	if !fsutil.Exists(scriptPath) {
		logger.Warn("Hook script not found, skipping", logger.Fields{
			"component": c.Folder,
			"hook":      string(hook),
			"script":    scriptPath,
		})
		return nil
	}

	i.emit(PhaseHook, c.Folder, string(hook))
	err := i.hooks.Execute(ctx, scriptPath, hooks.HookContext{
		Hook:           hook,
		PackageID:      m.ID.String(),
		PackageName:    m.Name,
		PackageVersion: m.Version,
		Component:      c.Folder,
		Operation:      operation,
		ComponentDir:   componentDir,
		ExtensionsRoot: i.root,
	})
	if err != nil {
		return fmt.Errorf("%s hook of %s: %w", hook, c.Folder, err)
	}
	return nil
}

func (i *Installer) merge(cr *ComponentResult, report deploy.Report) {
	cr.Report.Merge(report)
	for range report.BackedUp {
		i.metrics.IncBackup()
	}
}

func (i *Installer) emit(phase, id, msg string) {
	if i.onEvent != nil {
		i.onEvent(Event{Phase: phase, ID: id, Msg: msg})
	}
}

func (i *Installer) record(op string, start time.Time, res *Result, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case res != nil && !res.Success:
		outcome = metrics.OutcomeInvalid
	}
	if res != nil {
		for _, issue := range res.Validation.Issues {
			i.metrics.IncValidationIssue(string(issue.Code))
		}
	}
	i.metrics.IncOperation(op, outcome)
	i.metrics.ObserveDuration(op, time.Since(start).Seconds())
}
