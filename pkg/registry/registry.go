//go:generate mockgen -destination=./mocks/registry.go . Registry

// Package registry persists the pluggable definitions (modules, layouts and
// containers) extension packages register with the host.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/glorpus-work/extpack/pkg/errutils"
)

const (
	// BackendFile stores definitions in a JSON document.
	BackendFile = "file"
	// BackendRedis stores definitions in Redis hashes.
	BackendRedis = "redis"
)

// ModuleRecord is a registered module definition.
type ModuleRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type,omitempty"`
	Component string    `json:"component"`
	PackageID uuid.UUID `json:"package_id"`
}

// LayoutRecord is a registered layout definition.
type LayoutRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	ViewPath  string    `json:"view_path,omitempty"`
	Component string    `json:"component"`
	PackageID uuid.UUID `json:"package_id"`
}

// ContainerRecord is a registered container definition.
type ContainerRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	ViewPath  string    `json:"view_path,omitempty"`
	Component string    `json:"component"`
	PackageID uuid.UUID `json:"package_id"`
}

// Registry is the narrow write surface the installer depends on. Saves are upserts
// keyed by the record id; deleting an unknown id is not an error.
type Registry interface {
	SaveModuleDefinition(ctx context.Context, rec ModuleRecord) error
	DeleteModuleDefinition(ctx context.Context, id uuid.UUID) error
	SaveLayoutDefinition(ctx context.Context, rec LayoutRecord) error
	DeleteLayoutDefinition(ctx context.Context, id uuid.UUID) error
	SaveContainerDefinition(ctx context.Context, rec ContainerRecord) error
	DeleteContainerDefinition(ctx context.Context, id uuid.UUID) error
}

// Lister reads registered definitions. Lookups of unknown ids return
// errutils.ErrDefinitionNotFound. Lists are sorted by id.
type Lister interface {
	Module(ctx context.Context, id uuid.UUID) (ModuleRecord, error)
	Modules(ctx context.Context) ([]ModuleRecord, error)
	Layout(ctx context.Context, id uuid.UUID) (LayoutRecord, error)
	Layouts(ctx context.Context) ([]LayoutRecord, error)
	Container(ctx context.Context, id uuid.UUID) (ContainerRecord, error)
	Containers(ctx context.Context) ([]ContainerRecord, error)
}

// Store is a complete registry backend.
type Store interface {
	Registry
	Lister
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Path     string
	RedisURL string
}

// Open creates the backend named by opts.Backend. An empty backend means BackendFile.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Path)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL)
	default:
		return nil, errutils.ErrUnknownBackendWithName(opts.Backend)
	}
}

func notFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s definition %s: %w", kind, id, errutils.ErrDefinitionNotFound)
}

func sortByID[T any](records []T, id func(T) uuid.UUID) {
	sort.Slice(records, func(i, j int) bool {
		return id(records[i]).String() < id(records[j]).String()
	})
}

func moduleID(r ModuleRecord) uuid.UUID       { return r.ID }
func layoutID(r LayoutRecord) uuid.UUID       { return r.ID }
func containerID(r ContainerRecord) uuid.UUID { return r.ID }

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
)
