package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/glorpus-work/extpack/pkg/platform"
)

const (
	// AppName is the name of the application used in paths
	AppName = "extpack"
)

// getAppDataDir returns the platform-specific base data directory
// On Linux: ~/.local/share
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func getAppDataDir() (string, error) {
	switch runtime.GOOS {
	case platform.OSWindows:
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", errors.New("LOCALAPPDATA environment variable not set")
		}
		return localAppData, nil

	case platform.OSDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil

	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return xdgDataHome, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// getAppStateDir returns the base state directory. Only Linux and the BSDs
// distinguish state from data (XDG_STATE_HOME); elsewhere the data dir is used.
func getAppStateDir() (string, error) {
	if runtime.GOOS == platform.OSWindows || runtime.GOOS == platform.OSDarwin {
		return getAppDataDir()
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state"), nil
}

// GetDataDir returns the platform-specific data directory for the application
// On Linux: ~/.local/share/extpack/
// On macOS: ~/Library/Application Support/extpack/
// On Windows: %LOCALAPPDATA%\extpack\
func GetDataDir() (string, error) {
	baseDir, err := getAppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, AppName), nil
}

// GetStateDir returns the directory holding the registry database.
func GetStateDir() (string, error) {
	baseDir, err := getAppStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, AppName), nil
}

// GetExtensionsDir returns the default extensions root.
// Format: <data_dir>/extensions/
func GetExtensionsDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "extensions"), nil
}

// GetRegistryPath returns the default location of the file-backed registry.
// Format: <state_dir>/registry.json
func GetRegistryPath() (string, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "registry.json"), nil
}
