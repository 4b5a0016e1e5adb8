// Package sweep removes the module backups and empty folders earlier installs left
// behind. It runs once at host startup, before any extension is loaded, when no
// process holds the old modules open any more.
package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/extpack/internal/logger"
)

// Failure is a path that could not be removed.
type Failure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Report lists what the sweep removed and what it had to leave behind.
type Report struct {
	Files    []string  `json:"files,omitempty"`
	Dirs     []string  `json:"dirs,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
}

// Sweep walks root depth first, deletes every file ending in suffix and every
// directory that is empty once its children have been processed. root itself is
// never removed. Failures are logged and recorded, never returned.
func Sweep(ctx context.Context, root, suffix string) Report {
	var report Report
	if suffix == "" {
		logger.Warn("Refusing to sweep without a backup suffix", logger.Fields{"root": root})
		return report
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			report.fail(root, err)
		}
		return report
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			report.fail(root, ctx.Err())
			break
		}
		sweepEntry(ctx, filepath.Join(root, entry.Name()), entry, suffix, &report)
	}

	logger.Debug("Swept extensions root", logger.Fields{
		"root":     root,
		"files":    len(report.Files),
		"dirs":     len(report.Dirs),
		"failures": len(report.Failures),
	})
	return report
}

func sweepEntry(ctx context.Context, path string, entry os.DirEntry, suffix string, report *Report) {
	if !entry.IsDir() {
		if !strings.HasSuffix(entry.Name(), suffix) {
			return
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			report.fail(path, err)
			return
		}
		report.Files = append(report.Files, path)
		return
	}

	children, err := os.ReadDir(path)
	if err != nil {
		report.fail(path, err)
		return
	}
	for _, child := range children {
		if ctx.Err() != nil {
			return
		}
		sweepEntry(ctx, filepath.Join(path, child.Name()), child, suffix, report)
	}

	remaining, err := os.ReadDir(path)
	if err != nil {
		report.fail(path, err)
		return
	}
	if len(remaining) > 0 {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		report.fail(path, err)
		return
	}
	report.Dirs = append(report.Dirs, path)
}

func (r *Report) fail(path string, err error) {
	logger.Warn("Sweep could not remove path", logger.Fields{"path": path, "error": err})
	r.Failures = append(r.Failures, Failure{Path: path, Err: err.Error()})
}
