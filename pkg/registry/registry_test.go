package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/extpack/pkg/errutils"
)

var (
	packageID       = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	moduleA         = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	moduleB         = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	testLayoutID    = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	testContainerID = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

func newFileStore(t *testing.T) Store {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)
	return store
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)

	store, err := NewRedisStore("redis://" + srv.Addr())
	require.NoError(t, err)
	return store
}

func TestStores(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		BackendFile:  newFileStore,
		BackendRedis: newRedisStore,
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("upsert keeps the declared id", func(t *testing.T) {
				store := open(t)
				defer func() { _ = store.Close() }()
				ctx := context.Background()

				rec := ModuleRecord{ID: moduleA, Name: "My Module", Type: "MyExt.Module", Component: "MyExt", PackageID: packageID}
				require.NoError(t, store.SaveModuleDefinition(ctx, rec))

				rec.Name = "Renamed"
				require.NoError(t, store.SaveModuleDefinition(ctx, rec))

				got, err := store.Module(ctx, moduleA)
				require.NoError(t, err)
				assert.Equal(t, rec, got)

				all, err := store.Modules(ctx)
				require.NoError(t, err)
				assert.Equal(t, []ModuleRecord{rec}, all)
			})

			t.Run("lists are sorted by id", func(t *testing.T) {
				store := open(t)
				defer func() { _ = store.Close() }()
				ctx := context.Background()

				require.NoError(t, store.SaveModuleDefinition(ctx, ModuleRecord{ID: moduleB, Component: "B"}))
				require.NoError(t, store.SaveModuleDefinition(ctx, ModuleRecord{ID: moduleA, Component: "A"}))

				all, err := store.Modules(ctx)
				require.NoError(t, err)
				require.Len(t, all, 2)
				assert.Equal(t, moduleA, all[0].ID)
				assert.Equal(t, moduleB, all[1].ID)
			})

			t.Run("layouts and containers", func(t *testing.T) {
				store := open(t)
				defer func() { _ = store.Close() }()
				ctx := context.Background()

				layout := LayoutRecord{ID: testLayoutID, Name: "Wide", ViewPath: "views/wide.tg", Component: "MyExt", PackageID: packageID}
				container := ContainerRecord{ID: testContainerID, Name: "Box", ViewPath: "views/box.tg", Component: "MyExt", PackageID: packageID}
				require.NoError(t, store.SaveLayoutDefinition(ctx, layout))
				require.NoError(t, store.SaveContainerDefinition(ctx, container))

				gotLayout, err := store.Layout(ctx, testLayoutID)
				require.NoError(t, err)
				assert.Equal(t, layout, gotLayout)
				gotContainer, err := store.Container(ctx, testContainerID)
				require.NoError(t, err)
				assert.Equal(t, container, gotContainer)

				require.NoError(t, store.DeleteLayoutDefinition(ctx, testLayoutID))
				require.NoError(t, store.DeleteContainerDefinition(ctx, testContainerID))

				layouts, err := store.Layouts(ctx)
				require.NoError(t, err)
				assert.Empty(t, layouts)
				containers, err := store.Containers(ctx)
				require.NoError(t, err)
				assert.Empty(t, containers)
			})

			t.Run("delete is idempotent and lookups report not found", func(t *testing.T) {
				store := open(t)
				defer func() { _ = store.Close() }()
				ctx := context.Background()

				require.NoError(t, store.SaveModuleDefinition(ctx, ModuleRecord{ID: moduleA}))
				require.NoError(t, store.DeleteModuleDefinition(ctx, moduleA))
				require.NoError(t, store.DeleteModuleDefinition(ctx, moduleA))

				_, err := store.Module(ctx, moduleA)
				assert.ErrorIs(t, err, errutils.ErrDefinitionNotFound)
				_, err = store.Layout(ctx, testLayoutID)
				assert.ErrorIs(t, err, errutils.ErrDefinitionNotFound)
				_, err = store.Container(ctx, testContainerID)
				assert.ErrorIs(t, err, errutils.ErrDefinitionNotFound)
			})
		})
	}
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "registry.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)
	rec := ModuleRecord{ID: moduleA, Name: "My Module", Component: "MyExt", PackageID: packageID}
	require.NoError(t, store.SaveModuleDefinition(ctx, rec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Module(ctx, moduleA)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestFileStoreErrors(t *testing.T) {
	_, err := NewFileStore("relative/registry.json")
	assert.ErrorIs(t, err, errutils.ErrInvalidPath)

	_, err = NewFileStore("")
	assert.ErrorIs(t, err, errutils.ErrInvalidPath)

	corrupt := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	_, err = NewFileStore(corrupt)
	assert.Error(t, err)
}

func TestFileStoreCanceledContext(t *testing.T) {
	store := newFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.SaveModuleDefinition(ctx, ModuleRecord{ID: moduleA}), context.Canceled)
}

func TestRedisStoreLayout(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	defer srv.Close()

	store, err := NewRedisStore("redis://" + srv.Addr())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveModuleDefinition(context.Background(), ModuleRecord{ID: moduleA, Name: "My Module"}))
	assert.True(t, srv.Exists(keyModules))
	payload := srv.HGet(keyModules, moduleA.String())
	assert.Contains(t, payload, `"name":"My Module"`)
}

func TestRedisStoreUnavailable(t *testing.T) {
	_, err := NewRedisStore("not a url")
	assert.Error(t, err)

	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	addr := srv.Addr()
	srv.Close()

	_, err = NewRedisStore("redis://" + addr)
	assert.ErrorIs(t, err, errutils.ErrRegistryUnavailable)
}

func TestOpen(t *testing.T) {
	store, err := Open(Options{Path: filepath.Join(t.TempDir(), "registry.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(Options{Backend: "etcd"})
	assert.ErrorIs(t, err, errutils.ErrUnknownBackend)
}
