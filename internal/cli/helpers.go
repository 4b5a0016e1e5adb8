package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/config"
	"github.com/glorpus-work/extpack/pkg/hooks"
	"github.com/glorpus-work/extpack/pkg/installer"
	"github.com/glorpus-work/extpack/pkg/metrics"
	"github.com/glorpus-work/extpack/pkg/registry"
)

// These variables will be set by the main package
var (
	ConfigPath     *string
	Verbose        *bool
	OutputFormat   *string
	ExtensionsRoot *string
	HostVersion    *string
	LogLevel       *string
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// session bundles what a command needs to talk to the installer.
type session struct {
	cfg       *config.Config
	store     registry.Store
	prom      *metrics.Prom
	installer *installer.Installer
}

// loadConfig loads the configuration, applies the global flag overrides and
// initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with CLI flags if provided
	if ExtensionsRoot != nil && *ExtensionsRoot != "" {
		cfg.Settings.ExtensionsRoot = *ExtensionsRoot
	}
	if HostVersion != nil && *HostVersion != "" {
		cfg.Settings.HostVersion = *HostVersion
	}
	if LogLevel != nil && *LogLevel != "" {
		cfg.Settings.LogLevel = *LogLevel
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.LogFormat))
	return cfg, nil
}

// openSession loads the configuration and opens the registry backend it names.
// Callers must close the session.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := registry.Open(registry.Options{
		Backend:  cfg.Registry.Backend,
		Path:     cfg.Registry.Path,
		RedisURL: cfg.Registry.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	s := &session{cfg: cfg, store: store}
	options := []installer.Option{
		installer.WithHooks(hooks.NewTengoExecutor()),
		installer.WithEvents(printEvent),
	}
	if cfg.Metrics.Textfile != "" {
		s.prom = metrics.NewProm()
		options = append(options, installer.WithMetrics(s.prom))
	}

	s.installer, err = installer.New(installer.Options{
		ExtensionsRoot:   cfg.Settings.ExtensionsRoot,
		HostVersion:      cfg.Settings.HostVersion,
		ModuleExtensions: cfg.Settings.ModuleExtensions,
		BackupSuffix:     cfg.Settings.BackupSuffix,
		PruneStale:       cfg.ShouldPruneStale(),
	}, store, options...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create installer: %w", err)
	}
	return s, nil
}

// Close writes the metrics textfile, if configured, and closes the registry.
func (s *session) Close() {
	if s.prom != nil {
		if err := s.prom.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			logger.Warn("Failed to write metrics textfile", logger.Fields{
				"path":  s.cfg.Metrics.Textfile,
				"error": err.Error(),
			})
		}
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("Failed to close registry", logger.Fields{"error": err.Error()})
	}
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig and SaveConfig report a descriptive error.
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

func jsonOutput() bool {
	return OutputFormat != nil && *OutputFormat == OutputJSON
}

// printEvent writes progress to stderr so that stdout stays parseable.
func printEvent(e installer.Event) {
	if jsonOutput() || Verbose == nil || !*Verbose {
		return
	}
	if e.ID != "" {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", e.Phase, e.Msg, e.ID)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", e.Phase, e.Msg)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult writes res in the selected output format. A result with validation
// issues is turned into an error wrapping errutils.ErrValidation.
func printResult(w io.Writer, action, source string, res *installer.Result) error {
	if jsonOutput() {
		if err := writeJSON(w, res); err != nil {
			return err
		}
		return res.Validation.Err()
	}

	if !res.Validation.Valid() {
		_, _ = fmt.Fprintf(w, "%s: %d issue(s)\n", source, len(res.Validation.Issues))
		for _, issue := range res.Validation.Issues {
			_, _ = fmt.Fprintf(w, "  %s\n", issue)
		}
		return res.Validation.Err()
	}

	name := res.PackageName
	if name == "" {
		name = source
	}
	_, _ = fmt.Fprintf(w, "%s %s (%s)\n", action, name, res.PackageID)
	for _, c := range res.Components {
		_, _ = fmt.Fprintf(w, "  %-20s written=%d backed_up=%d removed=%d registered=%d deregistered=%d\n",
			c.Folder, len(c.Written), len(c.BackedUp), len(c.Removed), c.Registered, c.Deregistered)
	}
	if res.RestartRequired {
		_, _ = fmt.Fprintln(w, "Restart the host to load the changed modules.")
	}
	return nil
}
