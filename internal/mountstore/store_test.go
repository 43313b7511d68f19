package mountstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	duck, err := Open(context.Background(), DriverDuckDB, "")
	require.NoError(t, err)
	t.Cleanup(func() { duck.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"duckdb": duck,
	}
}

func TestSaveGetList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved, err := store.Save(ctx, types.SavedMount{
				MountPoint:    "/mnt/s3-docs/",
				BackendType:   "S3Backend",
				BackendConfig: map[string]interface{}{"bucket": "docs", "prefix": "team/"},
				Priority:      5,
				ReadOnly:      true,
				Description:   "team docs",
				TenantID:      "acme",
			})
			require.NoError(t, err)
			assert.Equal(t, "/mnt/s3-docs", saved.MountPoint)
			require.NotNil(t, saved.CreatedAt)
			require.NotNil(t, saved.UpdatedAt)

			_, err = store.Save(ctx, types.SavedMount{MountPoint: "/mnt/a", BackendType: "MemoryBackend"})
			require.NoError(t, err)

			got, err := store.Get(ctx, "/mnt/s3-docs")
			require.NoError(t, err)
			assert.Equal(t, "S3Backend", got.BackendType)
			assert.Equal(t, "docs", got.BackendConfig["bucket"])
			assert.Equal(t, 5, got.Priority)
			assert.True(t, got.ReadOnly)
			assert.Equal(t, "acme", got.TenantID)

			all, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "/mnt/a", all[0].MountPoint)
			assert.Equal(t, "/mnt/s3-docs", all[1].MountPoint)
		})
	}
}

func TestSaveUpsertKeepsCreatedAt(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := store.Save(ctx, types.SavedMount{MountPoint: "/mnt/x", BackendType: "MemoryBackend", Priority: 1})
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
			second, err := store.Save(ctx, types.SavedMount{MountPoint: "/mnt/x", BackendType: "MemoryBackend", Priority: 9})
			require.NoError(t, err)

			assert.Equal(t, 9, second.Priority)
			assert.True(t, first.CreatedAt.Equal(*second.CreatedAt))
			assert.False(t, second.UpdatedAt.Before(*first.UpdatedAt))

			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "/mnt/none")
			assert.True(t, types.IsKind(err, types.KindNotFound))
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Save(ctx, types.SavedMount{MountPoint: "/mnt/gone", BackendType: "MemoryBackend"})
			require.NoError(t, err)

			deleted, err := store.Delete(ctx, "/mnt/gone")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = store.Delete(ctx, "/mnt/gone")
			require.NoError(t, err)
			assert.False(t, deleted)

			_, err = store.Get(ctx, "/mnt/gone")
			assert.True(t, types.IsKind(err, types.KindNotFound))
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", "")
	assert.Error(t, err)

	store, err := Open(context.Background(), DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)
}
