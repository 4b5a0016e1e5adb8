package installer

import (
	"github.com/google/uuid"

	"github.com/glorpus-work/extpack/pkg/deploy"
	"github.com/glorpus-work/extpack/pkg/hooks"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/metrics"
	"github.com/glorpus-work/extpack/pkg/modtable"
	"github.com/glorpus-work/extpack/pkg/validation"
	"github.com/glorpus-work/extpack/pkg/verifier"
)

// Event phases.
const (
	PhaseValidating  = "validating"
	PhasePruning     = "pruning"
	PhaseCleanup     = "cleanup"
	PhaseCopying     = "copying"
	PhaseHook        = "hook"
	PhaseRegistering = "registering"
	PhaseRemoving    = "removing"
	PhaseDone        = "done"
	PhaseError       = "error"
)

// Operation names used for metrics.
const (
	opValidate  = "validate"
	opInstall   = "install"
	opUninstall = "uninstall"
	opSweep     = "sweep"
)

// Event represents a simple progress notification.
type Event struct {
	Phase string // validating|pruning|cleanup|copying|hook|registering|removing|done|error
	ID    string // component folder, empty for package-wide events
	Msg   string
}

// Archive is the read access the installer needs into a package.
type Archive interface {
	manifest.Source
	verifier.Archive
	deploy.Archive
}

// Options configures an Installer.
type Options struct {
	// ExtensionsRoot is the directory every component folder is installed into.
	ExtensionsRoot string
	// HostVersion is compared against each package's compatibility range.
	HostVersion string
	// ModuleExtensions identify loadable binary modules.
	ModuleExtensions []string
	// BackupSuffix is appended to modules renamed out of the way.
	BackupSuffix string
	// PruneStale removes files and definitions an upgrade no longer lists.
	PruneStale bool
}

// Option customizes an Installer beyond its Options.
type Option func(*Installer)

// WithHooks sets the executor for component hook scripts. Without it hooks are skipped.
func WithHooks(exec hooks.Executor) Option {
	return func(i *Installer) { i.hooks = exec }
}

// WithMetrics sets the metrics sink. The default records nothing.
func WithMetrics(m metrics.Metrics) Option {
	return func(i *Installer) { i.metrics = m }
}

// WithModuleTable marks the files the host currently has loaded.
func WithModuleTable(t *modtable.Table) Option {
	return func(i *Installer) { i.loaded = t }
}

// WithVersionReader replaces the binary module inspector used for downgrade checks.
func WithVersionReader(r verifier.VersionReader) Option {
	return func(i *Installer) { i.versions = r }
}

// WithEvents registers a callback for progress events.
func WithEvents(fn func(Event)) Option {
	return func(i *Installer) { i.onEvent = fn }
}

// ComponentResult is what happened to one component.
type ComponentResult struct {
	deploy.Report
	Registered   int `json:"registered"`
	Deregistered int `json:"deregistered"`
}

// Result is the outcome of an install, uninstall or validation run.
type Result struct {
	Success         bool              `json:"success"`
	Validation      validation.Result `json:"validation"`
	PackageID       uuid.UUID         `json:"packageId"`
	PackageName     string            `json:"packageName,omitempty"`
	PackageVersion  string            `json:"packageVersion,omitempty"`
	Components      []ComponentResult `json:"components,omitempty"`
	RestartRequired bool              `json:"restartRequired"`
}

func (r *Result) setPackage(m *manifest.Manifest) {
	if m == nil {
		return
	}
	r.PackageID = m.ID
	r.PackageName = m.Name
	r.PackageVersion = m.Version
}

func (r *Result) add(cr ComponentResult) {
	r.Components = append(r.Components, cr)
	if cr.ModulesChanged {
		r.RestartRequired = true
	}
}

// Installed describes a component folder found below the extensions root.
type Installed struct {
	Folder         string    `json:"folder"`
	PackageID      uuid.UUID `json:"packageId"`
	PackageName    string    `json:"packageName,omitempty"`
	PackageVersion string    `json:"packageVersion,omitempty"`
	Files          int       `json:"files"`
	Definitions    int       `json:"definitions"`
	Error          string    `json:"error,omitempty"`
}
