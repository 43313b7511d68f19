package namespace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

func TestLoadTokenShapes(t *testing.T) {
	srv := newFakeServer()
	store := New(srv, Options{}).Mounts()
	ctx := context.Background()

	srv.answers[methodLoadMount] = "act_01"
	token, err := store.Load(ctx, "/mnt/a")
	require.NoError(t, err)
	assert.Equal(t, "act_01", token)

	srv.answers[methodLoadMount] = map[string]string{"activation_id": "act_02"}
	token, err = store.Load(ctx, "/mnt/a")
	require.NoError(t, err)
	assert.Equal(t, "act_02", token)
}

func TestLoadMissingSavedMount(t *testing.T) {
	srv := newFakeServer()
	srv.failOn(methodLoadMount, "", types.NewError(types.KindNotFound, methodLoadMount, "", "no saved mount"))
	_, err := New(srv, Options{}).Mounts().Load(context.Background(), "/mnt/none")

	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.KindNotFound, te.Kind)
	assert.Equal(t, "/mnt/none", te.Path)
}

func TestDeleteSavedMount(t *testing.T) {
	srv := newFakeServer()
	srv.saved["/mnt/a"] = types.SavedMount{MountPoint: "/mnt/a", BackendType: "MemoryBackend"}
	srv.mounts = []types.Mount{{MountPoint: "/mnt/a", BackendType: "MemoryBackend"}}
	c := New(srv, Options{})
	ctx := context.Background()

	deleted, err := c.Mounts().Delete(ctx, "/mnt/a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Mounts().Delete(ctx, "/mnt/a")
	require.NoError(t, err)
	assert.False(t, deleted)

	// the live mount is untouched
	active, err := c.ListMounts(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSaveValidates(t *testing.T) {
	srv := newFakeServer()
	store := New(srv, Options{}).Mounts()

	_, err := store.Save(context.Background(), types.SavedMount{MountPoint: "/mnt/a"})
	assert.True(t, errors.Is(err, types.ErrValidation))
	_, err = store.Save(context.Background(), types.SavedMount{BackendType: "MemoryBackend"})
	assert.True(t, errors.Is(err, types.ErrValidation))
	assert.Empty(t, srv.methods())

	srv.answers[methodSaveMount] = types.SavedMount{MountPoint: "/mnt/a", BackendType: "MemoryBackend", Priority: 1}
	saved, err := store.Save(context.Background(), types.SavedMount{MountPoint: "/mnt/a/", BackendType: "MemoryBackend", Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, "/mnt/a", saved.MountPoint)

	mount := srv.lastParams(methodSaveMount)["mount"].(map[string]interface{})
	assert.Equal(t, "/mnt/a", mount["mount_point"])
}

func TestListSavedAliases(t *testing.T) {
	srv := newFakeServer()
	srv.saved["/mnt/a//"] = types.SavedMount{MountPoint: "/mnt/a//", BackendType: "LocalBackend"}
	c := New(srv, Options{})

	saved, err := c.ListSavedMounts(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "/mnt/a", saved[0].MountPoint)

	_, err = c.ListSavedConnectors(context.Background())
	require.NoError(t, err)
	_, err = c.ListConnectors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{methodListSavedMounts, methodListSavedConnectors, methodListConnectors}, srv.methods())
}
