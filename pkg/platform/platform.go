package platform

import (
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Platform represents the host platform with OS and Architecture.
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// CurrentPlatform returns the current platform (OS and architecture)
func CurrentPlatform() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// String returns a string representation of the platform
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// NormalizeOS normalizes OS names to the GOOS spelling.
func NormalizeOS(os string) string {
	os = strings.ToLower(strings.TrimSpace(os))
	switch os {
	case "macos", "osx", "mac":
		return OSDarwin
	case "win", "win32", "win64":
		return OSWindows
	case "":
		return "unknown"
	default:
		return os
	}
}

// NormalizeArch normalizes architecture names to the GOARCH spelling.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "x86_64", "x64":
		return "amd64"
	case "x86", "i386", "i686":
		return "386"
	case "aarch64":
		return "arm64"
	case "":
		return "unknown"
	default:
		return arch
	}
}

// DefaultModuleExtensions returns the extensions that identify loadable binary
// modules on the given OS. WebAssembly modules are loadable everywhere.
func DefaultModuleExtensions(goos string) []string {
	switch NormalizeOS(goos) {
	case OSWindows:
		return []string{ExtDLL, ExtWasm}
	case OSDarwin:
		return []string{ExtDylib, ExtSharedObject, ExtWasm}
	default:
		return []string{ExtSharedObject, ExtWasm}
	}
}

// NormalizeExtensions lower-cases the extensions and makes sure each starts with a dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// IsModuleFile reports whether name carries one of the module extensions (case-insensitive).
func IsModuleFile(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
