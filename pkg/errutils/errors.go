// Package errutils provides the shared error values of extpack together with small
// helpers for wrapping errors with context.
//
// Expected install outcomes (missing archive entries, incompatible host versions,
// attempted module downgrades) are not errors; they are reported through
// validation results. The values here cover configuration problems and genuine
// I/O faults.
package errutils

import (
	"fmt"
)

var (
	// ErrValidation is wrapped by every error that carries validation issues.
	ErrValidation = fmt.Errorf("validation failed")

	// Config errors are related to configuration file operations and validation.
	ErrEmptyConfigPath = fmt.Errorf(
		"config file path cannot be empty")

	ErrInvalidConfigPath = fmt.Errorf(
		"invalid config file path")

	ErrConfigParse = fmt.Errorf(
		"failed to parse config")

	// ErrConfigValidation is returned when configuration values fail validation.
	ErrConfigValidation = fmt.Errorf(
		"invalid configuration")

	ErrConfigEncode = fmt.Errorf(
		"failed to encode config")

	ErrConfigDirectory = fmt.Errorf(
		"failed to create config directory")

	ErrConfigFileCreate = fmt.Errorf(
		"failed to create config file")

	// ErrConfigFileExists is returned when attempting to create a configuration file that already exists.
	ErrConfigFileExists = fmt.Errorf("configuration file already exists (use --force to overwrite)")

	// ErrConfigFileRename is returned when renaming the temporary config file fails.
	ErrConfigFileRename = fmt.Errorf("failed to rename temporary config file")

	// ErrConfigMarshal is returned when marshaling the config to YAML fails.
	ErrConfigMarshal = fmt.Errorf("failed to marshal config to YAML")

	// ErrInvalidLogLevel is returned when an invalid log level is specified.
	ErrInvalidLogLevel = fmt.Errorf("invalid log level")

	// ErrInvalidBoolValue is returned when an invalid boolean value is provided in the configuration.
	ErrInvalidBoolValue = fmt.Errorf("invalid boolean value")

	// ErrUnknownConfigKey is returned when an unknown configuration key is encountered.
	ErrUnknownConfigKey = fmt.Errorf("unknown configuration key")

	// ErrUnknownBackend is returned when the registry backend is neither file nor redis.
	ErrUnknownBackend = fmt.Errorf("unknown registry backend")

	// ErrExtensionsRootEmpty is returned when no extensions root is configured.
	ErrExtensionsRootEmpty = fmt.Errorf("extensions root cannot be empty")

	// ErrBackupSuffixInvalid is returned when the backup suffix is empty or contains a separator.
	ErrBackupSuffixInvalid = fmt.Errorf("backup suffix must be non-empty and must not contain path separators")

	// Filesystem errors.

	// ErrFileNotFound is returned when a required file cannot be found.
	ErrFileNotFound = fmt.Errorf("file not found")

	// ErrInvalidPath is returned when a file or directory path is invalid.
	ErrInvalidPath = fmt.Errorf("invalid path")

	// Version errors.

	// ErrInvalidVersion is returned for malformed dotted versions or patterns.
	ErrInvalidVersion = fmt.Errorf("invalid version")

	// ErrNoVersion is returned when a module carries no readable version metadata.
	ErrNoVersion = fmt.Errorf("module has no version metadata")

	// ErrCorruptVersion is returned when a module's version metadata exists but cannot be parsed.
	ErrCorruptVersion = fmt.Errorf("module version metadata is corrupt")

	// Installer errors.

	// ErrManifestNotFound is returned when no manifest exists where one is expected.
	ErrManifestNotFound = fmt.Errorf("manifest not found")

	// ErrNotInstalled is returned when uninstalling a component folder that holds no manifest.
	ErrNotInstalled = fmt.Errorf("extension is not installed")

	// ErrDefinitionNotFound is returned by registry lookups for unknown definition ids.
	ErrDefinitionNotFound = fmt.Errorf("definition not found")

	// ErrRegistryUnavailable is returned when a registry backend has been closed or never opened.
	ErrRegistryUnavailable = fmt.Errorf("registry unavailable")

	// ErrHookExecution is returned when a component hook script fails.
	ErrHookExecution = fmt.Errorf("hook execution failed")
)

// FileOperationError is returned for failed file system mutations.
type FileOperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileOperationError) Unwrap() error {
	return e.Err
}

// NewFileOperationError creates a FileOperationError.
func NewFileOperationError(op, path string, err error) error {
	return &FileOperationError{Op: op, Path: path, Err: err}
}

// Wrap wraps an error with additional context.
// If the error is nil, Wrap returns nil.
//
// Example:
//
//	if err := someOperation(); err != nil {
//	    return errutils.Wrap(err, "failed to perform operation")
//	}
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
// If the error is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrUnknownBackendWithName creates an error naming the unsupported registry backend.
func ErrUnknownBackendWithName(name string) error {
	return fmt.Errorf("%w: '%s', must be one of: file, redis", ErrUnknownBackend, name)
}

// ErrInvalidVersionWithValue creates an error naming the malformed version.
func ErrInvalidVersionWithValue(value string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidVersion, value, reason)
}
