package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

func newBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	root := t.TempDir()
	b, err := New(storage.LocalConfig{RootPath: root})
	require.NoError(t, err)
	return b, root
}

func TestNewRootHandling(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nested", "root")

	_, err := New(storage.LocalConfig{RootPath: missing})
	assert.Error(t, err)

	b, err := New(storage.LocalConfig{RootPath: missing, CreateDirs: true})
	require.NoError(t, err)
	assert.Equal(t, storage.TypeLocal, b.Type())
	assert.DirExists(t, missing)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = New(storage.LocalConfig{RootPath: file})
	assert.Error(t, err)
}

func TestWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	b, root := newBackend(t)

	obj, err := b.Write(ctx, "/a/b/c.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c.txt", obj.Path)
	assert.Equal(t, int64(5), obj.Size)
	assert.FileExists(t, filepath.Join(root, "a", "b", "c.txt"))

	data, err := b.Read(ctx, "/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = b.Read(ctx, "/a")
	assert.True(t, types.IsKind(err, types.KindValidation))

	require.NoError(t, b.Delete(ctx, "/a/b/c.txt"))
	_, err = b.Stat(ctx, "/a/b/c.txt")
	assert.True(t, types.IsKind(err, types.KindNotFound))

	err = b.Delete(ctx, "/a/b/c.txt")
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestEscapeRejected(t *testing.T) {
	b, _ := newBackend(t)
	_, err := b.Read(context.Background(), "/../etc/passwd")
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestListRecursive(t *testing.T) {
	ctx := context.Background()
	b, _ := newBackend(t)
	for _, p := range []string{"/x/1.txt", "/x/y/2.txt", "/top.txt"} {
		_, err := b.Write(ctx, p, []byte("data"))
		require.NoError(t, err)
	}

	flat, err := b.List(ctx, "/", false)
	require.NoError(t, err)
	var names []string
	for _, o := range flat {
		names = append(names, o.Path)
	}
	assert.ElementsMatch(t, []string{"/x", "/top.txt"}, names)

	deep, err := b.List(ctx, "/x", true)
	require.NoError(t, err)
	names = nil
	for _, o := range deep {
		names = append(names, o.Path)
	}
	assert.Equal(t, []string{"/x/1.txt", "/x/y", "/x/y/2.txt"}, names)

	_, err = b.List(ctx, "/nope", true)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestMkdirRmdirMove(t *testing.T) {
	ctx := context.Background()
	b, _ := newBackend(t)

	require.NoError(t, b.Mkdir(ctx, "/p/q", true))
	err := b.Mkdir(ctx, "/p/q", true)
	assert.True(t, types.IsKind(err, types.KindValidation))
	err = b.Mkdir(ctx, "/r/s", false)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	_, err = b.Write(ctx, "/p/q/f.txt", []byte("1"))
	require.NoError(t, err)
	err = b.Rmdir(ctx, "/p", false)
	assert.True(t, types.IsKind(err, types.KindValidation))

	require.NoError(t, b.Move(ctx, "/p/q/f.txt", "/moved/f.txt"))
	data, err := b.Read(ctx, "/moved/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	require.NoError(t, b.Rmdir(ctx, "/p", true))
	_, err = b.Stat(ctx, "/p")
	assert.True(t, types.IsKind(err, types.KindNotFound))
}
