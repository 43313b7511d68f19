package namespace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

func TestEnrichExactMountPointsOnly(t *testing.T) {
	mounts := []types.Mount{{MountPoint: "/mnt/gdrive", BackendType: "GDriveConnector"}}
	entries := []types.FileEntry{
		types.NewFileEntry("/mnt/gdrive", true),
		types.NewFileEntry("/mnt/gdrive/sub", true),
		types.NewFileEntry("/mnt/other", true),
	}

	out := Enrich(entries, mounts)
	require.Len(t, out, 3)
	assert.Equal(t, "GDriveConnector", out[0].BackendType)
	assert.Equal(t, "/mnt/gdrive", out[0].MountPoint)
	assert.False(t, out[1].HasProvenance())
	assert.False(t, out[2].HasProvenance())

	// input untouched
	assert.False(t, entries[0].HasProvenance())
}

func TestEnrichPreservesDirectoryFlag(t *testing.T) {
	mounts := []types.Mount{{MountPoint: "/mnt/x", BackendType: "MemoryBackend"}}
	out := Enrich([]types.FileEntry{types.NewFileEntry("/mnt/x", false)}, mounts)
	assert.False(t, out[0].IsDirectory)
}

func TestListEnrichedScenario(t *testing.T) {
	srv := newFakeServer()
	srv.dirs["/mnt"] = true
	srv.dirs["/mnt/s3-docs"] = true
	srv.files["/mnt/s3-docs/readme.md"] = []byte("hi")
	srv.mounts = []types.Mount{{MountPoint: "/mnt/s3-docs", BackendType: "S3Backend", Priority: 10}}
	c := New(srv, Options{})
	ctx := context.Background()

	parent, err := c.ListEnriched(ctx, "/mnt", types.ListOptions{})
	require.NoError(t, err)
	require.Len(t, parent, 1)
	assert.Equal(t, "/mnt/s3-docs", parent[0].Path)
	assert.Equal(t, "S3Backend", parent[0].BackendType)

	children, err := c.ListEnriched(ctx, "/mnt/s3-docs", types.ListOptions{})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/mnt/s3-docs/readme.md", children[0].Path)
	assert.Empty(t, children[0].BackendType)
	assert.Empty(t, children[0].MountPoint)
}

func TestListEnrichedFailsWhenMountsUnknown(t *testing.T) {
	srv := newFakeServer()
	srv.dirs["/mnt"] = true
	srv.failOn(methodListMounts, "", types.NewError(types.KindBackend, methodListMounts, "", "registry down"))
	c := New(srv, Options{})

	entries, err := c.ListEnriched(context.Background(), "/", types.ListOptions{})
	assert.Nil(t, entries)
	assert.True(t, errors.Is(err, types.ErrBackend))
}

func TestRegistryFreshSnapshotEachCall(t *testing.T) {
	srv := newFakeServer()
	srv.mounts = []types.Mount{{MountPoint: "/mnt/b/", BackendType: "LocalBackend"}, {MountPoint: "/mnt/a", BackendType: "MemoryBackend"}}
	reg := NewRegistry(srv)
	ctx := context.Background()

	first, err := reg.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, []string{first[0].MountPoint, first[1].MountPoint})

	srv.mounts = srv.mounts[:1]
	second, err := reg.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Len(t, first, 2)

	m, err := reg.Lookup(ctx, "/mnt/b")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "LocalBackend", m.BackendType)

	m, err = reg.Lookup(ctx, "/mnt/b/file")
	require.NoError(t, err)
	assert.Nil(t, m)
}
