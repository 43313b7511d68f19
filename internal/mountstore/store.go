// Package mountstore persists saved mount configurations on the server.
package mountstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Store is the catalog of saved mounts. Delete is all-or-nothing and reports
// false when nothing was saved at the mount point.
type Store interface {
	List(ctx context.Context) ([]types.SavedMount, error)
	Get(ctx context.Context, mountPoint string) (types.SavedMount, error)
	Save(ctx context.Context, mount types.SavedMount) (types.SavedMount, error)
	Delete(ctx context.Context, mountPoint string) (bool, error)
	Close() error
}

// Memory is a Store held in process memory
type Memory struct {
	mu     sync.RWMutex
	mounts map[string]types.SavedMount
	now    func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		mounts: make(map[string]types.SavedMount),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) List(_ context.Context) ([]types.SavedMount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.SavedMount, 0, len(m.mounts))
	for _, sm := range m.mounts {
		out = append(out, sm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MountPoint < out[j].MountPoint })
	return out, nil
}

func (m *Memory) Get(_ context.Context, mountPoint string) (types.SavedMount, error) {
	mp := paths.Normalize(mountPoint)
	m.mu.RLock()
	defer m.mu.RUnlock()
	sm, ok := m.mounts[mp]
	if !ok {
		return types.SavedMount{}, notSaved(mp)
	}
	return sm, nil
}

func (m *Memory) Save(_ context.Context, mount types.SavedMount) (types.SavedMount, error) {
	mount.MountPoint = paths.Normalize(mount.MountPoint)
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if prev, ok := m.mounts[mount.MountPoint]; ok && prev.CreatedAt != nil {
		mount.CreatedAt = prev.CreatedAt
	} else {
		mount.CreatedAt = &now
	}
	mount.UpdatedAt = &now
	m.mounts[mount.MountPoint] = mount
	return mount, nil
}

func (m *Memory) Delete(_ context.Context, mountPoint string) (bool, error) {
	mp := paths.Normalize(mountPoint)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.mounts[mp]; !ok {
		return false, nil
	}
	delete(m.mounts, mp)
	return true, nil
}

func (m *Memory) Close() error { return nil }

func notSaved(mp string) error {
	return types.NewError(types.KindNotFound, "get_saved_mount", mp, "no saved mount at this mount point")
}
