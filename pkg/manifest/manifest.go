// Package manifest models the extension.json document shipped in every extension
// package and validates it against the embedded schema and the host version.
package manifest

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// FileName is the fixed name of the manifest at the package root. A copy with
// the same name is written into every installed component folder.
const FileName = "extension.json"

// Manifest is a parsed package description.
type Manifest struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Version       string         `json:"version,omitempty"`
	Description   string         `json:"description,omitempty"`
	Compatibility *Compatibility `json:"compatibility,omitempty"`
	Components    []Component    `json:"components"`

	raw []byte
}

// Raw returns the manifest bytes exactly as they appeared in the package.
func (m *Manifest) Raw() []byte {
	return m.raw
}

// Component returns the component installed into folder, compared case-insensitively.
func (m *Manifest) Component(folder string) (Component, bool) {
	for _, c := range m.Components {
		if strings.EqualFold(c.Folder, folder) {
			return c, true
		}
	}
	return Component{}, false
}

// Compatibility is the host version range a package declares.
type Compatibility struct {
	MinVersion string `json:"minVersion"`
	MaxVersion string `json:"maxVersion,omitempty"`
}

// Component is a folder-scoped unit of a package.
type Component struct {
	Folder string `json:"folder"`
	Hooks  *Hooks `json:"hooks,omitempty"`
	Items  []Item `json:"items"`
}

// Hooks names Tengo scripts, relative to the component folder, run around install and uninstall.
type Hooks struct {
	PostInstall  string `json:"postInstall,omitempty"`
	PreUninstall string `json:"preUninstall,omitempty"`
}

// Item is a tagged union; exactly one field is set.
type Item struct {
	File      *FileEntry           `json:"file,omitempty"`
	Folder    *FolderEntry         `json:"folder,omitempty"`
	Module    *ModuleDefinition    `json:"moduleDefinition,omitempty"`
	Layout    *LayoutDefinition    `json:"layoutDefinition,omitempty"`
	Container *ContainerDefinition `json:"containerDefinition,omitempty"`
	Cleanup   *Cleanup             `json:"cleanup,omitempty"`
}

// FileEntry is a file relative to its parent folder.
type FileEntry struct {
	Path string `json:"path"`
}

// FolderEntry is a folder relative to its parent folder; nested paths are relative to it.
type FolderEntry struct {
	Path  string `json:"path"`
	Items []Item `json:"items,omitempty"`
}

// ModuleDefinition registers an implementing type under an author-assigned id.
type ModuleDefinition struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
	Type string    `json:"type,omitempty"`
}

// LayoutDefinition registers a layout view.
type LayoutDefinition struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name,omitempty"`
	ViewPath string    `json:"viewPath,omitempty"`
}

// ContainerDefinition registers a container view.
type ContainerDefinition struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name,omitempty"`
	ViewPath string    `json:"viewPath,omitempty"`
}

// Cleanup lists items removed on every install and uninstall.
type Cleanup struct {
	Items []Item `json:"items"`
}

// Entry is a file or folder of a component, addressed relative to the component folder.
type Entry struct {
	Path  string
	IsDir bool
}

// Definitions groups the registry definitions declared by a list of items.
type Definitions struct {
	Modules    []ModuleDefinition
	Layouts    []LayoutDefinition
	Containers []ContainerDefinition
}

// Len returns the total number of definitions.
func (d Definitions) Len() int {
	return len(d.Modules) + len(d.Layouts) + len(d.Containers)
}

// Entries returns every file and folder the component installs, parents before children.
// Cleanup sections are not included.
func (c Component) Entries() []Entry {
	return WalkEntries(c.Items)
}

// InstallEntries returns Entries plus the component's hook scripts and their parent
// folders, which are installed alongside the listed files so that a preUninstall
// hook is still available when the package archive is gone.
func (c Component) InstallEntries() []Entry {
	entries := c.Entries()
	if c.Hooks == nil {
		return entries
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[strings.ToLower(e.Path)] = struct{}{}
	}
	add := func(e Entry) {
		key := strings.ToLower(e.Path)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		entries = append(entries, e)
	}

	for _, hook := range []string{c.Hooks.PostInstall, c.Hooks.PreUninstall} {
		if hook == "" {
			continue
		}
		segs := strings.Split(hook, "/")
		for i := 1; i < len(segs); i++ {
			add(Entry{Path: strings.Join(segs[:i], "/"), IsDir: true})
		}
		add(Entry{Path: hook})
	}
	return entries
}

// Definitions returns the registry definitions the component installs.
func (c Component) Definitions() Definitions {
	return CollectDefinitions(c.Items)
}

// CleanupItems returns the items of all cleanup sections of the component.
func (c Component) CleanupItems() []Item {
	var out []Item
	for _, item := range c.Items {
		if item.Cleanup != nil {
			out = append(out, item.Cleanup.Items...)
		}
	}
	return out
}

// WalkEntries flattens file and folder items into entries, parents before children.
// Definition items and cleanup sections are skipped.
func WalkEntries(items []Item) []Entry {
	var out []Entry
	walkEntries(items, "", &out)
	return out
}

func walkEntries(items []Item, prefix string, out *[]Entry) {
	for _, item := range items {
		switch {
		case item.File != nil:
			*out = append(*out, Entry{Path: joinRel(prefix, item.File.Path)})
		case item.Folder != nil:
			dir := joinRel(prefix, item.Folder.Path)
			*out = append(*out, Entry{Path: dir, IsDir: true})
			walkEntries(item.Folder.Items, dir, out)
		}
	}
}

// CollectDefinitions gathers the top-level definition items. Cleanup sections are skipped.
func CollectDefinitions(items []Item) Definitions {
	var defs Definitions
	for _, item := range items {
		switch {
		case item.Module != nil:
			defs.Modules = append(defs.Modules, *item.Module)
		case item.Layout != nil:
			defs.Layouts = append(defs.Layouts, *item.Layout)
		case item.Container != nil:
			defs.Containers = append(defs.Containers, *item.Container)
		}
	}
	return defs
}

func joinRel(prefix, p string) string {
	if prefix == "" {
		return p
	}
	return path.Join(prefix, p)
}
