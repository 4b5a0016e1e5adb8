package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/fsutil"
)

const fileFormatVersion = "1"

type document struct {
	FormatVersion string                        `json:"format_version"`
	LastUpdate    time.Time                     `json:"last_update"`
	Modules       map[uuid.UUID]ModuleRecord    `json:"modules"`
	Layouts       map[uuid.UUID]LayoutRecord    `json:"layouts"`
	Containers    map[uuid.UUID]ContainerRecord `json:"containers"`
}

func newDocument() *document {
	return &document{
		FormatVersion: fileFormatVersion,
		LastUpdate:    time.Now(),
		Modules:       make(map[uuid.UUID]ModuleRecord),
		Layouts:       make(map[uuid.UUID]LayoutRecord),
		Containers:    make(map[uuid.UUID]ContainerRecord),
	}
}

// FileStore keeps the registry in a JSON file that is rewritten atomically after
// every change.
type FileStore struct {
	path    string
	rwMutex sync.RWMutex
	doc     *document
}

// NewFileStore loads the registry at path. A missing file is an empty registry.
func NewFileStore(path string) (*FileStore, error) {
	cleanPath := filepath.Clean(path)
	if path == "" || !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("registry path must be absolute: %q: %w", path, errutils.ErrInvalidPath)
	}

	store := &FileStore{path: cleanPath, doc: newDocument()}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, errutils.Wrapf(err, "failed to read registry %s", cleanPath)
	}

	if err := json.Unmarshal(data, store.doc); err != nil {
		return nil, errutils.Wrapf(err, "failed to parse registry %s", cleanPath)
	}
	if store.doc.Modules == nil {
		store.doc.Modules = make(map[uuid.UUID]ModuleRecord)
	}
	if store.doc.Layouts == nil {
		store.doc.Layouts = make(map[uuid.UUID]LayoutRecord)
	}
	if store.doc.Containers == nil {
		store.doc.Containers = make(map[uuid.UUID]ContainerRecord)
	}
	return store, nil
}

// Path returns the registry file.
func (s *FileStore) Path() string {
	return s.path
}

// Close is a no-op; every change is already on disk.
func (s *FileStore) Close() error {
	return nil
}

// mutate applies fn under the write lock and saves the document. The in-memory
// state is rolled back when the save fails.
func (s *FileStore) mutate(ctx context.Context, fn func(doc *document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.rwMutex.Lock()
	defer s.rwMutex.Unlock()

	next := s.doc.clone()
	fn(next)
	next.LastUpdate = time.Now()

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return errutils.Wrap(err, "failed to marshal registry")
	}
	if err := fsutil.WriteFileAtomic(s.path, data, fsutil.FileModeSecure); err != nil {
		return errutils.Wrapf(err, "failed to save registry %s", s.path)
	}
	s.doc = next
	return nil
}

func (d *document) clone() *document {
	out := &document{
		FormatVersion: d.FormatVersion,
		LastUpdate:    d.LastUpdate,
		Modules:       make(map[uuid.UUID]ModuleRecord, len(d.Modules)),
		Layouts:       make(map[uuid.UUID]LayoutRecord, len(d.Layouts)),
		Containers:    make(map[uuid.UUID]ContainerRecord, len(d.Containers)),
	}
	for k, v := range d.Modules {
		out.Modules[k] = v
	}
	for k, v := range d.Layouts {
		out.Layouts[k] = v
	}
	for k, v := range d.Containers {
		out.Containers[k] = v
	}
	return out
}

// SaveModuleDefinition stores rec, replacing any module with the same id.
func (s *FileStore) SaveModuleDefinition(ctx context.Context, rec ModuleRecord) error {
	logger.Debug("Saving module definition", logger.Fields{"id": rec.ID, "name": rec.Name})
	return s.mutate(ctx, func(doc *document) { doc.Modules[rec.ID] = rec })
}

// DeleteModuleDefinition removes the module with id, if present.
func (s *FileStore) DeleteModuleDefinition(ctx context.Context, id uuid.UUID) error {
	logger.Debug("Deleting module definition", logger.Fields{"id": id})
	return s.mutate(ctx, func(doc *document) { delete(doc.Modules, id) })
}

// SaveLayoutDefinition stores rec, replacing any layout with the same id.
func (s *FileStore) SaveLayoutDefinition(ctx context.Context, rec LayoutRecord) error {
	logger.Debug("Saving layout definition", logger.Fields{"id": rec.ID, "name": rec.Name})
	return s.mutate(ctx, func(doc *document) { doc.Layouts[rec.ID] = rec })
}

// DeleteLayoutDefinition removes the layout with id, if present.
func (s *FileStore) DeleteLayoutDefinition(ctx context.Context, id uuid.UUID) error {
	logger.Debug("Deleting layout definition", logger.Fields{"id": id})
	return s.mutate(ctx, func(doc *document) { delete(doc.Layouts, id) })
}

// SaveContainerDefinition stores rec, replacing any container with the same id.
func (s *FileStore) SaveContainerDefinition(ctx context.Context, rec ContainerRecord) error {
	logger.Debug("Saving container definition", logger.Fields{"id": rec.ID, "name": rec.Name})
	return s.mutate(ctx, func(doc *document) { doc.Containers[rec.ID] = rec })
}

// DeleteContainerDefinition removes the container with id, if present.
func (s *FileStore) DeleteContainerDefinition(ctx context.Context, id uuid.UUID) error {
	logger.Debug("Deleting container definition", logger.Fields{"id": id})
	return s.mutate(ctx, func(doc *document) { delete(doc.Containers, id) })
}

// Module returns the module with id or an error wrapping errutils.ErrDefinitionNotFound.
func (s *FileStore) Module(_ context.Context, id uuid.UUID) (ModuleRecord, error) {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	rec, ok := s.doc.Modules[id]
	if !ok {
		return ModuleRecord{}, notFound("module", id)
	}
	return rec, nil
}

// Modules returns every module sorted by id.
func (s *FileStore) Modules(_ context.Context) ([]ModuleRecord, error) {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	return values(s.doc.Modules, moduleID), nil
}

// Layout returns the layout with id.
func (s *FileStore) Layout(_ context.Context, id uuid.UUID) (LayoutRecord, error) {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	rec, ok := s.doc.Layouts[id]
	if !ok {
		return LayoutRecord{}, notFound("layout", id)
	}
	return rec, nil
}

// Layouts returns every layout sorted by id.
func (s *FileStore) Layouts(_ context.Context) ([]LayoutRecord, error) {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	return values(s.doc.Layouts, layoutID), nil
}

// Container returns the container with id.
func (s *FileStore) Container(_ context.Context, id uuid.UUID) (ContainerRecord, error) {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	rec, ok := s.doc.Containers[id]
	if !ok {
		return ContainerRecord{}, notFound("container", id)
	}
	return rec, nil
}

// Containers returns every container sorted by id.
func (s *FileStore) Containers(_ context.Context) ([]ContainerRecord, error) {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	return values(s.doc.Containers, containerID), nil
}

func values[T any](m map[uuid.UUID]T, id func(T) uuid.UUID) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sortByID(out, id)
	return out
}
