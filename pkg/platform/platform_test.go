package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentPlatform(t *testing.T) {
	platform := CurrentPlatform()

	assert.NotEmpty(t, platform.OS)
	assert.NotEmpty(t, platform.Arch)
	assert.Equal(t, NormalizeOS(runtime.GOOS), platform.OS)
	assert.Equal(t, NormalizeArch(runtime.GOARCH), platform.Arch)
}

func TestPlatformString(t *testing.T) {
	assert.Equal(t, "linux/amd64", Platform{OS: "linux", Arch: "amd64"}.String())
	assert.Equal(t, "darwin/arm64", Platform{OS: "darwin", Arch: "arm64"}.String())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		fn       func(string) string
	}{
		{"macOS", OSDarwin, NormalizeOS},
		{"Win", OSWindows, NormalizeOS},
		{"linux", OSLinux, NormalizeOS},
		{"", "unknown", NormalizeOS},
		{"x86_64", "amd64", NormalizeArch},
		{"aarch64", "arm64", NormalizeArch},
		{"i686", "386", NormalizeArch},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn(tt.input))
		})
	}
}

func TestDefaultModuleExtensions(t *testing.T) {
	assert.Equal(t, []string{ExtDLL, ExtWasm}, DefaultModuleExtensions(OSWindows))
	assert.Equal(t, []string{ExtSharedObject, ExtWasm}, DefaultModuleExtensions(OSLinux))
	assert.Contains(t, DefaultModuleExtensions(OSDarwin), ExtDylib)
}

func TestNormalizeExtensions(t *testing.T) {
	assert.Equal(t, []string{".mod", ".so"}, NormalizeExtensions([]string{"MOD", " .so ", ""}))
}

func TestIsModuleFile(t *testing.T) {
	exts := []string{".mod", ".wasm"}

	tests := []struct {
		name     string
		expected bool
	}{
		{"MyExt.mod", true},
		{"bin/Plugin.WASM", true},
		{"views/index.html", false},
		{"README", false},
		{"archive.mod.backup", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsModuleFile(tt.name, exts))
		})
	}
}
