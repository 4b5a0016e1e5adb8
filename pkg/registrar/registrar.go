// Package registrar turns the definition items of a manifest into registry upserts
// and deletes.
package registrar

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/registry"
)

// Registrar writes definitions to a registry. Ids are always the ones the manifest
// declares; nothing here ever generates a new one.
type Registrar struct {
	reg registry.Registry
}

// New creates a Registrar.
func New(reg registry.Registry) *Registrar {
	return &Registrar{reg: reg}
}

// Counts tallies registry writes.
type Counts struct {
	Registered   int `json:"registered"`
	Deregistered int `json:"deregistered"`
}

// RegisterModule upserts a module definition of the component installed into folder.
func (r *Registrar) RegisterModule(ctx context.Context, packageID uuid.UUID, folder string, def manifest.ModuleDefinition) error {
	rec := registry.ModuleRecord{ID: def.ID, Name: def.Name, Type: def.Type, Component: folder, PackageID: packageID}
	if err := r.reg.SaveModuleDefinition(ctx, rec); err != nil {
		return fmt.Errorf("register module definition %s: %w", def.ID, err)
	}
	return nil
}

// RegisterLayout upserts a layout definition of the component installed into folder.
func (r *Registrar) RegisterLayout(ctx context.Context, packageID uuid.UUID, folder string, def manifest.LayoutDefinition) error {
	rec := registry.LayoutRecord{ID: def.ID, Name: def.Name, ViewPath: def.ViewPath, Component: folder, PackageID: packageID}
	if err := r.reg.SaveLayoutDefinition(ctx, rec); err != nil {
		return fmt.Errorf("register layout definition %s: %w", def.ID, err)
	}
	return nil
}

// RegisterContainer upserts a container definition of the component installed into folder.
func (r *Registrar) RegisterContainer(ctx context.Context, packageID uuid.UUID, folder string, def manifest.ContainerDefinition) error {
	rec := registry.ContainerRecord{ID: def.ID, Name: def.Name, ViewPath: def.ViewPath, Component: folder, PackageID: packageID}
	if err := r.reg.SaveContainerDefinition(ctx, rec); err != nil {
		return fmt.Errorf("register container definition %s: %w", def.ID, err)
	}
	return nil
}

// DeregisterModule deletes the module definition with id. Unknown ids are not an error.
func (r *Registrar) DeregisterModule(ctx context.Context, id uuid.UUID) error {
	if err := r.reg.DeleteModuleDefinition(ctx, id); err != nil {
		return fmt.Errorf("deregister module definition %s: %w", id, err)
	}
	return nil
}

// DeregisterLayout deletes the layout definition with id.
func (r *Registrar) DeregisterLayout(ctx context.Context, id uuid.UUID) error {
	if err := r.reg.DeleteLayoutDefinition(ctx, id); err != nil {
		return fmt.Errorf("deregister layout definition %s: %w", id, err)
	}
	return nil
}

// DeregisterContainer deletes the container definition with id.
func (r *Registrar) DeregisterContainer(ctx context.Context, id uuid.UUID) error {
	if err := r.reg.DeleteContainerDefinition(ctx, id); err != nil {
		return fmt.Errorf("deregister container definition %s: %w", id, err)
	}
	return nil
}

// RegisterComponent upserts every definition c declares, modules first, then layouts,
// then containers. It stops at the first failure.
func (r *Registrar) RegisterComponent(ctx context.Context, packageID uuid.UUID, c manifest.Component) (Counts, error) {
	var counts Counts
	defs := c.Definitions()
	for _, d := range defs.Modules {
		if err := r.RegisterModule(ctx, packageID, c.Folder, d); err != nil {
			return counts, err
		}
		counts.Registered++
	}
	for _, d := range defs.Layouts {
		if err := r.RegisterLayout(ctx, packageID, c.Folder, d); err != nil {
			return counts, err
		}
		counts.Registered++
	}
	for _, d := range defs.Containers {
		if err := r.RegisterContainer(ctx, packageID, c.Folder, d); err != nil {
			return counts, err
		}
		counts.Registered++
	}

	logger.Debug("Registered component definitions", logger.Fields{
		"component": c.Folder,
		"count":     counts.Registered,
	})
	return counts, nil
}

// DeregisterComponent deletes every definition c declares.
func (r *Registrar) DeregisterComponent(ctx context.Context, c manifest.Component) (Counts, error) {
	counts, err := r.deregister(ctx, c.Definitions())
	logger.Debug("Deregistered component definitions", logger.Fields{
		"component": c.Folder,
		"count":     counts.Deregistered,
	})
	return counts, err
}

// DeregisterItems deletes the definitions listed in items, as found in a cleanup section.
func (r *Registrar) DeregisterItems(ctx context.Context, items []manifest.Item) (Counts, error) {
	return r.deregister(ctx, manifest.CollectDefinitions(items))
}

// DeregisterStale deletes the definitions previous declares that current does not.
func (r *Registrar) DeregisterStale(ctx context.Context, previous, current manifest.Component) (Counts, error) {
	keep := make(map[uuid.UUID]struct{})
	cur := current.Definitions()
	for _, d := range cur.Modules {
		keep[d.ID] = struct{}{}
	}
	for _, d := range cur.Layouts {
		keep[d.ID] = struct{}{}
	}
	for _, d := range cur.Containers {
		keep[d.ID] = struct{}{}
	}

	var stale manifest.Definitions
	prev := previous.Definitions()
	for _, d := range prev.Modules {
		if _, ok := keep[d.ID]; !ok {
			stale.Modules = append(stale.Modules, d)
		}
	}
	for _, d := range prev.Layouts {
		if _, ok := keep[d.ID]; !ok {
			stale.Layouts = append(stale.Layouts, d)
		}
	}
	for _, d := range prev.Containers {
		if _, ok := keep[d.ID]; !ok {
			stale.Containers = append(stale.Containers, d)
		}
	}
	return r.deregister(ctx, stale)
}

func (r *Registrar) deregister(ctx context.Context, defs manifest.Definitions) (Counts, error) {
	var counts Counts
	for _, d := range defs.Modules {
		if err := r.DeregisterModule(ctx, d.ID); err != nil {
			return counts, err
		}
		counts.Deregistered++
	}
	for _, d := range defs.Layouts {
		if err := r.DeregisterLayout(ctx, d.ID); err != nil {
			return counts, err
		}
		counts.Deregistered++
	}
	for _, d := range defs.Containers {
		if err := r.DeregisterContainer(ctx, d.ID); err != nil {
			return counts, err
		}
		counts.Deregistered++
	}
	return counts, nil
}
