// Package modver reads the version embedded in a loadable binary module without
// loading or executing it.
//
// WebAssembly modules carry the version in a custom section. Native modules are
// read through debug/buildinfo when they are Go binaries, and otherwise scanned for
// a stamp of the form EXTPACK_VERSION=1.2.3.4 written at build time.
package modver

import (
	"bytes"
	"context"
	"debug/buildinfo"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/platform"
	"github.com/glorpus-work/extpack/pkg/version"
)

const (
	// WasmSection is the name of the custom section holding a WebAssembly module's version.
	WasmSection = "extpack.version"
	// StampMarker precedes the version in a stamped native module.
	StampMarker = "EXTPACK_VERSION="
	// MaxModuleSize bounds how much of a module is read for inspection.
	MaxModuleSize = 256 << 20
)

// Inspector reads module versions.
type Inspector struct{}

// NewInspector creates an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// ReadVersion returns the normalized four-segment version of the module named name
// whose bytes are available through r. It returns errutils.ErrNoVersion when the
// module has no version metadata and errutils.ErrCorruptVersion when metadata
// exists but cannot be understood.
func (i *Inspector) ReadVersion(ctx context.Context, name string, r io.ReaderAt, size int64) (string, error) {
	if size > MaxModuleSize {
		return "", fmt.Errorf("module %s is %d bytes, larger than the %d byte inspection limit: %w",
			name, size, MaxModuleSize, errutils.ErrCorruptVersion)
	}

	if strings.EqualFold(path.Ext(name), platform.ExtWasm) {
		data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
		if err != nil {
			return "", errutils.Wrapf(err, "failed to read module %s", name)
		}
		return readWasmVersion(ctx, name, data)
	}
	return readNativeVersion(name, r, size)
}

// ReadFileVersion reads the version of a module on disk.
func (i *Inspector) ReadFileVersion(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", errutils.Wrapf(err, "failed to open module %s", filePath)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", errutils.Wrapf(err, "failed to stat module %s", filePath)
	}
	return i.ReadVersion(ctx, filePath, f, info.Size())
}

// readWasmVersion compiles the module in a throwaway runtime. Compilation validates
// and decodes the binary but never instantiates it, so no module code runs.
func readWasmVersion(ctx context.Context, name string, data []byte) (string, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter().WithCustomSections(true))
	defer func() { _ = rt.Close(ctx) }()

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return "", fmt.Errorf("module %s is not a valid WebAssembly binary: %v: %w", name, err, errutils.ErrCorruptVersion)
	}
	defer func() { _ = compiled.Close(ctx) }()

	for _, section := range compiled.CustomSections() {
		if section.Name() != WasmSection {
			continue
		}
		return normalize(name, string(bytes.TrimSpace(section.Data())))
	}
	return "", fmt.Errorf("module %s: %w", name, errutils.ErrNoVersion)
}

func readNativeVersion(name string, r io.ReaderAt, size int64) (string, error) {
	if info, err := buildinfo.Read(r); err == nil {
		v := strings.TrimPrefix(info.Main.Version, "v")
		if normalized, err := version.Normalize(v); err == nil {
			return normalized, nil
		}
		logger.Debug("Go module version not usable, looking for a stamp", logger.Fields{
			"module":  name,
			"version": info.Main.Version,
		})
	}

	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", errutils.Wrapf(err, "failed to read module %s", name)
	}

	idx := bytes.Index(data, []byte(StampMarker))
	if idx < 0 {
		return "", fmt.Errorf("module %s: %w", name, errutils.ErrNoVersion)
	}
	rest := data[idx+len(StampMarker):]
	end := 0
	for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	return normalize(name, string(rest[:end]))
}

func normalize(name, raw string) (string, error) {
	v, err := version.Normalize(raw)
	if err != nil {
		return "", fmt.Errorf("module %s declares version %q: %w", name, raw, errutils.ErrCorruptVersion)
	}
	return v, nil
}
