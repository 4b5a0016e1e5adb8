// Package config provides configuration management for extpack. It handles loading,
// validating and saving the YAML configuration file and provides defaults for every
// setting, so that a missing file is a valid configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/fsutil"
	"github.com/glorpus-work/extpack/pkg/platform"
	"github.com/glorpus-work/extpack/pkg/registry"
	"github.com/glorpus-work/extpack/pkg/version"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings       `yaml:"settings"`
	Registry RegistryConfig `yaml:"registry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Settings represents the installer settings.
type Settings struct {
	// ExtensionsRoot is the directory every component folder is installed into.
	ExtensionsRoot string `yaml:"extensions_root"`
	// HostVersion is the running host version compatibility ranges are checked against.
	HostVersion string `yaml:"host_version"`
	// ModuleExtensions identify loadable binary modules.
	ModuleExtensions []string `yaml:"module_extensions"`
	// BackupSuffix is appended to modules that are moved aside.
	BackupSuffix string `yaml:"backup_suffix"`
	// PruneStale removes files and definitions an upgrade no longer ships.
	PruneStale *bool `yaml:"prune_stale,omitempty"`

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// RegistryConfig selects the registry backend.
type RegistryConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty"`
}

// MetricsConfig controls the Prometheus textfile output.
type MetricsConfig struct {
	// Textfile is written after every command; empty disables it.
	Textfile string `yaml:"textfile,omitempty"`
}

// Default configuration values.
const (
	DefaultHostVersion  = "1.0.0.0"
	DefaultBackupSuffix = ".backup"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultRedisURL     = "redis://localhost:6379/0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	extensionsRoot, err := fsutil.GetExtensionsDir()
	if err != nil {
		extensionsRoot = filepath.Join(os.TempDir(), fsutil.AppName, "extensions")
	}
	registryPath, err := fsutil.GetRegistryPath()
	if err != nil {
		registryPath = filepath.Join(os.TempDir(), fsutil.AppName, "registry.json")
	}
	prune := true

	return &Config{
		Settings: Settings{
			ExtensionsRoot:   extensionsRoot,
			HostVersion:      DefaultHostVersion,
			ModuleExtensions: platform.DefaultModuleExtensions(runtime.GOOS),
			BackupSuffix:     DefaultBackupSuffix,
			PruneStale:       &prune,
			LogLevel:         DefaultLogLevel,
			LogFormat:        DefaultLogFormat,
		},
		Registry: RegistryConfig{
			Backend:  registry.BackendFile,
			Path:     registryPath,
			RedisURL: DefaultRedisURL,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No config file, using defaults", logger.Fields{"path": absPath})
			return DefaultConfig(), nil
		}
		return nil, errutils.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errutils.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigValidation, err.Error())
	}
	return &config, nil
}

// SaveConfig writes the configuration to path through a temporary file and a rename.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errutils.Wrap(errutils.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errutils.Wrap(errutils.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errutils.Wrap(errutils.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errutils.Wrap(errutils.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// ShouldPruneStale reports whether upgrades remove entries the new version no longer lists.
func (c *Config) ShouldPruneStale() bool {
	return c.Settings.PruneStale == nil || *c.Settings.PruneStale
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errutils.ErrConfigValidation
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	return validateRegistry(c.Registry)
}

func validateSettings(s Settings) error {
	if strings.TrimSpace(s.ExtensionsRoot) == "" {
		return errutils.ErrExtensionsRootEmpty
	}
	if _, err := version.Normalize(s.HostVersion); err != nil {
		return fmt.Errorf("host_version: %w", err)
	}
	if s.BackupSuffix == "" || strings.ContainsAny(s.BackupSuffix, `/\`) {
		return errutils.ErrBackupSuffixInvalid
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errutils.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	switch s.LogFormat {
	case string(logger.FormatText), string(logger.FormatJSON):
	default:
		return fmt.Errorf("log_format %q must be one of: text, json", s.LogFormat)
	}
	return nil
}

func validateRegistry(r RegistryConfig) error {
	switch r.Backend {
	case registry.BackendFile:
		if r.Path == "" {
			return fmt.Errorf("registry path: %w", errutils.ErrInvalidPath)
		}
	case registry.BackendRedis:
		if r.RedisURL == "" {
			return fmt.Errorf("registry redis_url cannot be empty for the redis backend")
		}
	default:
		return errutils.ErrUnknownBackendWithName(r.Backend)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.ExtensionsRoot == "" {
		c.Settings.ExtensionsRoot = defaults.Settings.ExtensionsRoot
	}
	if c.Settings.HostVersion == "" {
		c.Settings.HostVersion = defaults.Settings.HostVersion
	}
	if len(c.Settings.ModuleExtensions) == 0 {
		c.Settings.ModuleExtensions = defaults.Settings.ModuleExtensions
	}
	c.Settings.ModuleExtensions = platform.NormalizeExtensions(c.Settings.ModuleExtensions)
	if c.Settings.BackupSuffix == "" {
		c.Settings.BackupSuffix = defaults.Settings.BackupSuffix
	}
	if c.Settings.PruneStale == nil {
		c.Settings.PruneStale = defaults.Settings.PruneStale
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = defaults.Registry.Backend
	}
	if c.Registry.Path == "" {
		c.Registry.Path = defaults.Registry.Path
	}
	if c.Registry.RedisURL == "" {
		c.Registry.RedisURL = defaults.Registry.RedisURL
	}
}
