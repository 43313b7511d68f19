package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/storage"
)

func TestKeyMapping(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		key    string
		dirKey string
	}{
		{prefix: "", path: "/", key: "", dirKey: ""},
		{prefix: "", path: "/a/b.txt", key: "a/b.txt", dirKey: "a/b.txt/"},
		{prefix: "team", path: "/", key: "team/", dirKey: "team/"},
		{prefix: "team/", path: "/docs", key: "team/docs", dirKey: "team/docs/"},
		{prefix: "/team/", path: "docs//x", key: "team/docs/x", dirKey: "team/docs/x/"},
	}

	for _, tt := range tests {
		b := &Backend{prefix: normalizePrefix(tt.prefix)}
		assert.Equal(t, tt.key, b.key(tt.path), "key %q %q", tt.prefix, tt.path)
		assert.Equal(t, tt.dirKey, b.dirKey(tt.path), "dirKey %q %q", tt.prefix, tt.path)
		if tt.key != "" {
			assert.Equal(t, storage.Clean(tt.path), b.pathOf(tt.key))
		}
	}
}

func TestImplicitDirs(t *testing.T) {
	objs := []storage.Object{
		{Path: "/r/a/b/c.txt"},
		{Path: "/r/a/d.txt"},
	}
	out := withImplicitDirs("/r", objs, map[string]bool{})

	var dirs []string
	for _, o := range out {
		if o.IsDir {
			dirs = append(dirs, o.Path)
		}
	}
	assert.ElementsMatch(t, []string{"/r/a/b", "/r/a"}, dirs)
}

func TestNewWithoutNetwork(t *testing.T) {
	b, err := New(context.Background(), storage.S3Config{
		Bucket:    "docs",
		Prefix:    "team",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "AK",
		SecretKey: "SK",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.TypeS3, b.Type())
	assert.Equal(t, "team/", b.prefix)

	_, err = New(context.Background(), storage.S3Config{})
	assert.Error(t, err)
}
