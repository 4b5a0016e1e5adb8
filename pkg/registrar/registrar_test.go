package registrar

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/registry"
	regmocks "github.com/glorpus-work/extpack/pkg/registry/mocks"
)

var (
	packageID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	moduleID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	layoutID    = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	containerID = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	legacyID    = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

func component() manifest.Component {
	return manifest.Component{
		Folder: "MyExt",
		Items: []manifest.Item{
			{File: &manifest.FileEntry{Path: "MyExt.mod"}},
			{Module: &manifest.ModuleDefinition{ID: moduleID, Name: "My Module", Type: "MyExt.Module"}},
			{Layout: &manifest.LayoutDefinition{ID: layoutID, Name: "Wide", ViewPath: "views/wide.tg"}},
			{Container: &manifest.ContainerDefinition{ID: containerID, Name: "Box", ViewPath: "views/box.tg"}},
			{Cleanup: &manifest.Cleanup{Items: []manifest.Item{
				{Module: &manifest.ModuleDefinition{ID: legacyID}},
			}}},
		},
	}
}

func TestRegisterComponent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := regmocks.NewMockRegistry(ctrl)
	ctx := context.Background()
	gomock.InOrder(
		reg.EXPECT().SaveModuleDefinition(ctx, registry.ModuleRecord{
			ID: moduleID, Name: "My Module", Type: "MyExt.Module", Component: "MyExt", PackageID: packageID,
		}).Return(nil),
		reg.EXPECT().SaveLayoutDefinition(ctx, registry.LayoutRecord{
			ID: layoutID, Name: "Wide", ViewPath: "views/wide.tg", Component: "MyExt", PackageID: packageID,
		}).Return(nil),
		reg.EXPECT().SaveContainerDefinition(ctx, registry.ContainerRecord{
			ID: containerID, Name: "Box", ViewPath: "views/box.tg", Component: "MyExt", PackageID: packageID,
		}).Return(nil),
	)

	counts, err := New(reg).RegisterComponent(ctx, packageID, component())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Registered)
}

func TestRegisterComponent_StopsAtFirstFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := regmocks.NewMockRegistry(ctrl)
	boom := errors.New("registry down")
	reg.EXPECT().SaveModuleDefinition(gomock.Any(), gomock.Any()).Return(nil)
	reg.EXPECT().SaveLayoutDefinition(gomock.Any(), gomock.Any()).Return(boom)

	counts, err := New(reg).RegisterComponent(context.Background(), packageID, component())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), layoutID.String())
	assert.Equal(t, 1, counts.Registered)
}

func TestDeregisterComponent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := regmocks.NewMockRegistry(ctrl)
	reg.EXPECT().DeleteModuleDefinition(gomock.Any(), moduleID).Return(nil)
	reg.EXPECT().DeleteLayoutDefinition(gomock.Any(), layoutID).Return(nil)
	reg.EXPECT().DeleteContainerDefinition(gomock.Any(), containerID).Return(nil)

	counts, err := New(reg).DeregisterComponent(context.Background(), component())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Deregistered, "cleanup definitions are not part of the component")
}

func TestDeregisterItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := regmocks.NewMockRegistry(ctrl)
	reg.EXPECT().DeleteModuleDefinition(gomock.Any(), legacyID).Return(nil)

	counts, err := New(reg).DeregisterItems(context.Background(), component().CleanupItems())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Deregistered)
}

func TestDeregisterStale(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	current := manifest.Component{
		Folder: "MyExt",
		Items: []manifest.Item{
			{Module: &manifest.ModuleDefinition{ID: moduleID}},
		},
	}

	reg := regmocks.NewMockRegistry(ctrl)
	reg.EXPECT().DeleteLayoutDefinition(gomock.Any(), layoutID).Return(nil)
	reg.EXPECT().DeleteContainerDefinition(gomock.Any(), containerID).Return(nil)

	counts, err := New(reg).DeregisterStale(context.Background(), component(), current)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Deregistered)
}

func TestRegisterAgainstFileStore(t *testing.T) {
	store, err := registry.NewFileStore(t.TempDir() + "/registry.json")
	require.NoError(t, err)
	ctx := context.Background()
	r := New(store)

	for i := 0; i < 2; i++ {
		_, err := r.RegisterComponent(ctx, packageID, component())
		require.NoError(t, err)
	}

	modules, err := store.Modules(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, moduleID, modules[0].ID)
}
