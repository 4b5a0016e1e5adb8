package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/platform"
)

// Keys lists the keys accepted by GetValue and SetValue in display order.
var Keys = []string{
	"extensions_root",
	"host_version",
	"module_extensions",
	"backup_suffix",
	"prune_stale",
	"log_level",
	"log_format",
	"registry.backend",
	"registry.path",
	"registry.redis_url",
	"metrics.textfile",
}

// SetValue sets a configuration value by key. module_extensions takes a comma
// separated list. The result is not validated; call Validate before saving.
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "extensions_root":
		c.Settings.ExtensionsRoot = value
	case "host_version":
		c.Settings.HostVersion = value
	case "module_extensions":
		c.Settings.ModuleExtensions = platform.NormalizeExtensions(strings.Split(value, ","))
	case "backup_suffix":
		c.Settings.BackupSuffix = value
	case "prune_stale":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w for %s: %s", errutils.ErrInvalidBoolValue, key, value)
		}
		c.Settings.PruneStale = &boolVal
	case "log_level":
		c.Settings.LogLevel = value
	case "log_format":
		c.Settings.LogFormat = value
	case "registry.backend":
		c.Registry.Backend = value
	case "registry.path":
		c.Registry.Path = value
	case "registry.redis_url":
		c.Registry.RedisURL = value
	case "metrics.textfile":
		c.Metrics.Textfile = value
	default:
		return fmt.Errorf("%w: %s", errutils.ErrUnknownConfigKey, key)
	}
	return nil
}

// GetValue returns a configuration value by key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "extensions_root":
		return c.Settings.ExtensionsRoot, nil
	case "host_version":
		return c.Settings.HostVersion, nil
	case "module_extensions":
		return strings.Join(c.Settings.ModuleExtensions, ","), nil
	case "backup_suffix":
		return c.Settings.BackupSuffix, nil
	case "prune_stale":
		return strconv.FormatBool(c.ShouldPruneStale()), nil
	case "log_level":
		return c.Settings.LogLevel, nil
	case "log_format":
		return c.Settings.LogFormat, nil
	case "registry.backend":
		return c.Registry.Backend, nil
	case "registry.path":
		return c.Registry.Path, nil
	case "registry.redis_url":
		return c.Registry.RedisURL, nil
	case "metrics.textfile":
		return c.Metrics.Textfile, nil
	default:
		return "", fmt.Errorf("%w: %s", errutils.ErrUnknownConfigKey, key)
	}
}

// ToMap returns every key with its current value. This is useful for displaying
// the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, err := c.GetValue(key)
		if err != nil {
			continue
		}
		result[key] = value
	}
	return result
}
