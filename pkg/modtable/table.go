// Package modtable keeps track of the binary modules the host process currently has
// loaded, keyed by the component folder that owns them.
package modtable

import (
	"path"
	"sort"
	"strings"
	"sync"
)

// Table maps component folders to the set of loaded module paths. Paths are relative
// to the component folder and compared case-insensitively. A nil *Table is an empty
// table.
type Table struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]map[string]string)}
}

func key(p string) string {
	return strings.ToLower(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// Track records modulePath of folder as loaded. It is a no-op on a nil table.
func (t *Table) Track(folder, modulePath string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries == nil {
		t.entries = make(map[string]map[string]string)
	}
	f := key(folder)
	if t.entries[f] == nil {
		t.entries[f] = make(map[string]string)
	}
	t.entries[f][key(modulePath)] = path.Clean(strings.ReplaceAll(modulePath, "\\", "/"))
}

// Release forgets a single loaded module.
func (t *Table) Release(folder, modulePath string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f := key(folder)
	delete(t.entries[f], key(modulePath))
	if len(t.entries[f]) == 0 {
		delete(t.entries, f)
	}
}

// ReleaseFolder forgets every module of folder.
func (t *Table) ReleaseFolder(folder string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key(folder))
}

// IsLoaded reports whether modulePath of folder is tracked as loaded.
func (t *Table) IsLoaded(folder, modulePath string) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.entries[key(folder)][key(modulePath)]
	return ok
}

// Loaded returns the sorted module paths tracked for folder.
func (t *Table) Loaded(folder string) []string {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	mods := t.entries[key(folder)]
	out := make([]string, 0, len(mods))
	for _, p := range mods {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Folders returns the sorted folders that have at least one loaded module.
func (t *Table) Folders() []string {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.entries))
	for f := range t.entries {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
