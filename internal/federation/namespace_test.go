package federation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/storage/memory"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recorder) Publish(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Op+" "+e.Path)
	}
	return out
}

// fixture wires a namespace whose mounts open pre-built memory backends
type fixture struct {
	ns       *Namespace
	backends map[string]*memory.Backend
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backends: make(map[string]*memory.Backend), events: &recorder{}}
	f.ns = New(Options{
		Events: f.events,
		Open: func(_ context.Context, sm types.SavedMount) (storage.Backend, error) {
			if sm.BackendType == "BrokenBackend" {
				return nil, errors.New("bad credentials")
			}
			b, ok := f.backends[sm.MountPoint]
			if !ok {
				b = memory.New(storage.MemoryConfig{})
				f.backends[sm.MountPoint] = b
			}
			return b, nil
		},
	})
	t.Cleanup(func() { f.ns.Close() })
	return f
}

// backend returns the memory backend a mount will open, creating it
func (f *fixture) backend(mp string) *memory.Backend {
	b, ok := f.backends[mp]
	if !ok {
		b = memory.New(storage.MemoryConfig{})
		f.backends[mp] = b
	}
	return b
}

func (f *fixture) mount(t *testing.T, mp, backendType string, readOnly bool) {
	t.Helper()
	ctx := context.Background()
	f.backend(mp)
	_, err := f.ns.store.Save(ctx, types.SavedMount{MountPoint: mp, BackendType: backendType, ReadOnly: readOnly})
	require.NoError(t, err)
	_, err = f.ns.LoadMount(ctx, mp)
	require.NoError(t, err)
}

func entryPaths(entries []types.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestRootWriteReadList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entry, err := f.ns.Write(ctx, "/workspace/notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/workspace/notes.txt", entry.Path)
	assert.Contains(t, entry.ContentType, "text/plain")

	data, err := f.ns.Read(ctx, "/workspace/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := f.ns.List(ctx, "/", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/workspace"}, entryPaths(entries))
	assert.True(t, entries[0].IsDirectory)

	_, err = f.ns.Read(ctx, "/workspace")
	assert.True(t, types.IsKind(err, types.KindNotFound))
	_, err = f.ns.Read(ctx, "/missing")
	assert.True(t, types.IsKind(err, types.KindNotFound))

	assert.Equal(t, []string{"write /workspace/notes.txt"}, f.events.ops())
}

func TestMountPointsAppearInParentListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.backend("/mnt/s3-docs").Write(ctx, "/guide.md", []byte("# guide"))
	require.NoError(t, err)
	f.mount(t, "/mnt/s3-docs", storage.TypeS3, false)

	root, err := f.ns.List(ctx, "/", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt"}, entryPaths(root))

	mnt, err := f.ns.List(ctx, "/mnt", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/s3-docs"}, entryPaths(mnt))
	assert.True(t, mnt[0].IsDirectory)

	inside, err := f.ns.List(ctx, "/mnt/s3-docs", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/s3-docs/guide.md"}, entryPaths(inside))

	all, err := f.ns.List(ctx, "/", ListOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt", "/mnt/s3-docs", "/mnt/s3-docs/guide.md"}, entryPaths(all))

	isDir, err := f.ns.IsDirectory(ctx, "/mnt/s3-docs")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, p := range []string{"/d/report-1.txt", "/d/report-2.txt", "/d/other.txt"} {
		_, err := f.ns.Write(ctx, p, []byte("x"))
		require.NoError(t, err)
	}
	entries, err := f.ns.List(ctx, "/d", ListOptions{Prefix: "report"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/d/report-1.txt", "/d/report-2.txt"}, entryPaths(entries))

	_, err = f.ns.List(ctx, "/d/other.txt", ListOptions{})
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestMountedWritesGoThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mount(t, "/mnt/mem", storage.TypeMemory, false)

	_, err := f.ns.Write(ctx, "/mnt/mem/a/b.txt", []byte("data"))
	require.NoError(t, err)

	data, err := f.backend("/mnt/mem").Read(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	entries, err := f.ns.List(ctx, "/mnt/mem/a", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/mem/a/b.txt"}, entryPaths(entries))

	require.NoError(t, f.ns.Delete(ctx, "/mnt/mem/a/b.txt"))
	exists, err := f.ns.Exists(ctx, "/mnt/mem/a/b.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMkdirRmdir(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.ns.Mkdir(ctx, "/a/b/c", true, false))
	err := f.ns.Mkdir(ctx, "/a/b/c", true, false)
	assert.True(t, types.IsKind(err, types.KindValidation))
	require.NoError(t, f.ns.Mkdir(ctx, "/a/b/c", true, true))

	err = f.ns.Mkdir(ctx, "/x/y", false, false)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	_, err = f.ns.Write(ctx, "/a/b/c/f.txt", []byte("1"))
	require.NoError(t, err)
	err = f.ns.Rmdir(ctx, "/a", false)
	assert.True(t, types.IsKind(err, types.KindValidation))
	err = f.ns.Delete(ctx, "/a")
	assert.True(t, types.IsKind(err, types.KindValidation))

	require.NoError(t, f.ns.Rmdir(ctx, "/a", true))
	exists, err := f.ns.Exists(ctx, "/a/b/c/f.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMountPointsAreProtected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mount(t, "/mnt/data", storage.TypeMemory, false)

	err := f.ns.Rmdir(ctx, "/mnt", true)
	assert.True(t, types.IsKind(err, types.KindValidation))
	err = f.ns.Delete(ctx, "/mnt/data")
	assert.True(t, types.IsKind(err, types.KindValidation))
	_, err = f.ns.Write(ctx, "/mnt/data", []byte("x"))
	assert.True(t, types.IsKind(err, types.KindValidation))
	err = f.ns.Rename(ctx, "/mnt/data", "/mnt/other")
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestReadOnlyMount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.backend("/mnt/ro").Write(ctx, "/keep.txt", []byte("k"))
	require.NoError(t, err)
	f.mount(t, "/mnt/ro", storage.TypeMemory, true)

	data, err := f.ns.Read(ctx, "/mnt/ro/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "k", string(data))

	_, err = f.ns.Write(ctx, "/mnt/ro/new.txt", []byte("n"))
	assert.True(t, errors.Is(err, types.ErrReadOnly))
	assert.True(t, errors.Is(f.ns.Delete(ctx, "/mnt/ro/keep.txt"), types.ErrReadOnly))
	assert.True(t, errors.Is(f.ns.Mkdir(ctx, "/mnt/ro/d", true, false), types.ErrReadOnly))
	assert.True(t, errors.Is(f.ns.Rename(ctx, "/mnt/ro/keep.txt", "/mnt/ro/moved.txt"), types.ErrReadOnly))
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mount(t, "/mnt/m", storage.TypeMemory, false)

	_, err := f.ns.Write(ctx, "/mnt/m/old.txt", []byte("v"))
	require.NoError(t, err)
	require.NoError(t, f.ns.Rename(ctx, "/mnt/m/old.txt", "/mnt/m/dir/new.txt"))

	data, err := f.ns.Read(ctx, "/mnt/m/dir/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
	exists, err := f.ns.Exists(ctx, "/mnt/m/old.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.ns.Write(ctx, "/root.txt", []byte("r"))
	require.NoError(t, err)
	err = f.ns.Rename(ctx, "/root.txt", "/mnt/m/root.txt")
	assert.True(t, types.IsKind(err, types.KindUnsupported))

	err = f.ns.Rename(ctx, "/mnt/m/dir/new.txt", "/mnt/m/dir/new.txt")
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = f.ns.Write(ctx, "/mnt/m/taken.txt", []byte("t"))
	require.NoError(t, err)
	err = f.ns.Rename(ctx, "/mnt/m/dir/new.txt", "/mnt/m/taken.txt")
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestGlobAndGrep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	files := map[string]string{
		"/src/main.go":         "package main\nfunc main() {}\n// TODO: wire flags\n",
		"/src/util/util.go":    "package util\n// todo lower\n",
		"/src/README.md":       "TODO docs\n",
		"/src/assets/logo.png": "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR TODO",
	}
	for p, content := range files {
		_, err := f.ns.Write(ctx, p, []byte(content))
		require.NoError(t, err)
	}

	matches, err := f.ns.Glob(ctx, "**/*.go", "/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/main.go", "/src/util/util.go"}, matches)

	_, err = f.ns.Glob(ctx, "[", "/src")
	assert.True(t, types.IsKind(err, types.KindValidation))

	hits, err := f.ns.Grep(ctx, "TODO", GrepOptions{Path: "/src"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, types.GrepMatch{Path: "/src/README.md", Line: 1, Content: "TODO docs"}, hits[0])
	assert.Equal(t, "/src/main.go", hits[1].Path)
	assert.Equal(t, 3, hits[1].Line)

	ci, err := f.ns.Grep(ctx, "todo", GrepOptions{Path: "/src", IgnoreCase: true, FilePattern: "*.go"})
	require.NoError(t, err)
	assert.Len(t, ci, 2)

	capped, err := f.ns.Grep(ctx, "todo", GrepOptions{Path: "/src", IgnoreCase: true, MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	_, err = f.ns.Grep(ctx, "(", GrepOptions{Path: "/src"})
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestLoadMount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ns.LoadMount(ctx, "/mnt/none")
	assert.True(t, types.IsKind(err, types.KindNotFound))

	_, err = f.ns.store.Save(ctx, types.SavedMount{MountPoint: "/mnt/broken", BackendType: "BrokenBackend"})
	require.NoError(t, err)
	_, err = f.ns.LoadMount(ctx, "/mnt/broken")
	assert.True(t, types.IsKind(err, types.KindBackend))
	assert.Empty(t, f.ns.ListMounts())

	_, err = f.ns.SaveMount(ctx, types.SavedMount{MountPoint: "/mnt/a/", BackendType: storage.TypeMemory, Priority: 3})
	require.NoError(t, err)
	first, err := f.ns.LoadMount(ctx, "/mnt/a")
	require.NoError(t, err)
	second, err := f.ns.LoadMount(ctx, "/mnt/a")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	mounts := f.ns.ListMounts()
	require.Len(t, mounts, 1)
	assert.Equal(t, types.Mount{MountPoint: "/mnt/a", BackendType: storage.TypeMemory, Priority: 3}, mounts[0])
}

func TestSaveMountValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ns.SaveMount(ctx, types.SavedMount{MountPoint: "/", BackendType: storage.TypeMemory})
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = f.ns.SaveMount(ctx, types.SavedMount{MountPoint: "/mnt/s3", BackendType: storage.TypeS3})
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = f.ns.SaveMount(ctx, types.SavedMount{MountPoint: "/mnt/x", BackendType: "Nope"})
	assert.True(t, types.IsKind(err, types.KindValidation))

	saved, err := f.ns.SaveMount(ctx, types.SavedMount{
		MountPoint:    "/mnt/s3",
		BackendType:   storage.TypeS3,
		BackendConfig: map[string]interface{}{"bucket": "docs"},
	})
	require.NoError(t, err)
	assert.NotNil(t, saved.CreatedAt)
}

func TestDeleteSavedLeavesActiveMount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mount(t, "/mnt/live", storage.TypeMemory, false)

	deleted, err := f.ns.DeleteSaved(ctx, "/mnt/live")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Len(t, f.ns.ListMounts(), 1)

	deleted, err = f.ns.DeleteSaved(ctx, "/mnt/live")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, f.ns.RemoveMount(ctx, "/mnt/live"))
	assert.Empty(t, f.ns.ListMounts())
	err = f.ns.RemoveMount(ctx, "/mnt/live")
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.ns.Bootstrap(ctx, []config.MountSpec{
		{MountPoint: "/mnt/auto", BackendType: storage.TypeMemory, Autoload: true},
		{MountPoint: "/mnt/lazy", BackendType: storage.TypeMemory},
		{MountPoint: "/mnt/bad", BackendType: storage.TypeLocal},
	})

	saved, err := f.ns.ListSaved(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "/mnt/auto", saved[0].MountPoint)
	assert.Equal(t, "/mnt/lazy", saved[1].MountPoint)

	mounts := f.ns.ListMounts()
	require.Len(t, mounts, 1)
	assert.Equal(t, "/mnt/auto", mounts[0].MountPoint)
}
