package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name        string
		backendType string
		raw         map[string]interface{}
		want        Config
		wantErr     bool
	}{
		{name: "memory empty", backendType: TypeMemory, want: MemoryConfig{}},
		{
			name:        "local",
			backendType: TypeLocal,
			raw:         map[string]interface{}{"root_path": "/srv/data", "create_dirs": true},
			want:        LocalConfig{RootPath: "/srv/data", CreateDirs: true},
		},
		{
			name:        "s3",
			backendType: TypeS3,
			raw:         map[string]interface{}{"bucket": "docs", "prefix": "team/", "region": "eu-west-1"},
			want:        S3Config{Bucket: "docs", Prefix: "team/", Region: "eu-west-1"},
		},
		{name: "local missing root", backendType: TypeLocal, raw: map[string]interface{}{}, wantErr: true},
		{name: "s3 missing bucket", backendType: TypeS3, raw: map[string]interface{}{"prefix": "x"}, wantErr: true},
		{
			name:        "s3 half credentials",
			backendType: TypeS3,
			raw:         map[string]interface{}{"bucket": "b", "access_key": "AK"},
			wantErr:     true,
		},
		{
			name:        "s3 absolute prefix",
			backendType: TypeS3,
			raw:         map[string]interface{}{"bucket": "b", "prefix": "/abs"},
			wantErr:     true,
		},
		{
			name:        "unknown field",
			backendType: TypeLocal,
			raw:         map[string]interface{}{"root_path": "/x", "user_email": "a@b.c"},
			wantErr:     true,
		},
		{
			name:        "wrong field type",
			backendType: TypeLocal,
			raw:         map[string]interface{}{"root_path": 42},
			wantErr:     true,
		},
		{name: "unknown type", backendType: "GDriveBackend", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig(tt.backendType, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, types.IsKind(err, types.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
			assert.Equal(t, tt.backendType, cfg.BackendType())
		})
	}
}

func TestChildren(t *testing.T) {
	all := []Object{
		{Path: "/a", IsDir: true},
		{Path: "/a/b.txt", Size: 3},
		{Path: "/a/deep/c.txt", Size: 1},
		{Path: "/a/deep/d.txt", Size: 1},
		{Path: "/other.txt", Size: 1},
	}

	got := Children("/a", all)
	require.Len(t, got, 2)
	assert.Equal(t, "/a/b.txt", got[0].Path)
	assert.False(t, got[0].IsDir)
	assert.Equal(t, Object{Path: "/a/deep", IsDir: true}, got[1])

	root := Children("/", all)
	require.Len(t, root, 2)
	assert.Equal(t, "/a", root[0].Path)
	assert.Equal(t, "/other.txt", root[1].Path)
}
