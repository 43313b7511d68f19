package federation

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/shared/id"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// ListMounts returns the active mounts sorted by mount point
func (n *Namespace) ListMounts() []types.Mount {
	active := n.activeList()
	out := make([]types.Mount, 0, len(active))
	for _, m := range active {
		out = append(out, m.saved.Active())
	}
	return out
}

// ListSaved returns every saved mount configuration
func (n *Namespace) ListSaved(ctx context.Context) ([]types.SavedMount, error) {
	saved, err := n.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].MountPoint < saved[j].MountPoint })
	return saved, nil
}

// SaveMount validates and stores a mount configuration. An active mount at
// the same point keeps running with its previous configuration.
func (n *Namespace) SaveMount(ctx context.Context, mount types.SavedMount) (types.SavedMount, error) {
	mp := paths.Normalize(mount.MountPoint)
	if mp == paths.Root {
		return types.SavedMount{}, types.NewError(types.KindValidation, "save_mount", mp, "cannot mount over the root")
	}
	for _, seg := range paths.Split(mp) {
		if err := paths.ValidateSegment(seg); err != nil {
			return types.SavedMount{}, types.NewError(types.KindValidation, "save_mount", mp, err.Error())
		}
	}
	if _, err := storage.ParseConfig(mount.BackendType, mount.BackendConfig); err != nil {
		return types.SavedMount{}, rebase("save_mount", mp, err)
	}
	mount.MountPoint = mp

	saved, err := n.store.Save(ctx, mount)
	if err != nil {
		return types.SavedMount{}, rebase("save_mount", mp, err)
	}
	n.log.Info("mount saved", zap.String("mount_point", mp), zap.String("backend_type", mount.BackendType))
	return saved, nil
}

// DeleteSaved removes a saved configuration. An active mount stays active.
// It reports false when nothing was saved at mountPoint.
func (n *Namespace) DeleteSaved(ctx context.Context, mountPoint string) (bool, error) {
	mp := paths.Normalize(mountPoint)
	deleted, err := n.store.Delete(ctx, mp)
	if err != nil {
		return false, rebase("delete_saved_mount", mp, err)
	}
	if deleted {
		n.log.Info("saved mount deleted", zap.String("mount_point", mp))
	}
	return deleted, nil
}

// LoadMount activates the saved mount at mountPoint and returns its
// activation id. Loading an active mount returns the existing id. A backend
// that fails to connect or scan leaves the mount inactive.
func (n *Namespace) LoadMount(ctx context.Context, mountPoint string) (id.ActivationID, error) {
	mp := paths.Normalize(mountPoint)
	n.loadMu.Lock()
	defer n.loadMu.Unlock()

	n.mu.RLock()
	existing, ok := n.mounts[mp]
	n.mu.RUnlock()
	if ok {
		return existing.activation, nil
	}

	saved, err := n.store.Get(ctx, mp)
	if err != nil {
		return "", rebase("load_mount", mp, err)
	}

	backend, err := n.open(ctx, saved)
	if err != nil {
		n.log.Warn("mount failed to initialize", zap.String("mount_point", mp), zap.Error(err))
		return "", connectError(mp, err)
	}
	objs, err := backend.List(ctx, paths.Root, true)
	if err != nil {
		backend.Close()
		n.log.Warn("initial scan failed", zap.String("mount_point", mp), zap.Error(err))
		return "", connectError(mp, err)
	}

	m := &activeMount{
		saved:      saved,
		backend:    backend,
		cache:      newMetaCache(objs),
		activation: id.NewActivationID(),
		loadedAt:   time.Now().UTC(),
	}
	n.mu.Lock()
	n.mounts[mp] = m
	n.mu.Unlock()
	n.updateGauge()

	n.log.Info("mount loaded",
		zap.String("mount_point", mp),
		zap.String("backend_type", saved.BackendType),
		zap.String("activation", m.activation.String()),
		zap.Int("objects", m.cache.len()))
	n.publish(types.EventMount, mp, mp)
	return m.activation, nil
}

// connectError reports a backend that could not initialize. Invalid
// configuration keeps its validation kind.
func connectError(mp string, err error) error {
	if types.IsKind(err, types.KindValidation) {
		return rebase("load_mount", mp, err)
	}
	return &types.Error{Kind: types.KindBackend, Op: "load_mount", Path: mp, Err: err}
}

// RemoveMount deactivates a live mount. Its saved configuration stays.
func (n *Namespace) RemoveMount(_ context.Context, mountPoint string) error {
	mp := paths.Normalize(mountPoint)
	n.loadMu.Lock()
	defer n.loadMu.Unlock()

	n.mu.Lock()
	m, ok := n.mounts[mp]
	if ok {
		delete(n.mounts, mp)
	}
	n.mu.Unlock()
	if !ok {
		return types.NewError(types.KindNotFound, "remove_mount", mp, "mount is not active")
	}

	m.syncing.Lock()
	defer m.syncing.Unlock()
	if err := m.backend.Close(); err != nil {
		n.log.Warn("close backend", zap.String("mount_point", mp), zap.Error(err))
	}
	n.updateGauge()
	n.log.Info("mount removed", zap.String("mount_point", mp))
	n.publish(types.EventUnmount, mp, mp)
	return nil
}

// Bootstrap saves the mounts from a mounts file and loads those marked
// autoload. Failures are logged and skipped.
func (n *Namespace) Bootstrap(ctx context.Context, specs []config.MountSpec) {
	for _, spec := range specs {
		if _, err := n.SaveMount(ctx, spec.Saved()); err != nil {
			n.log.Error("bootstrap save failed", zap.String("mount_point", spec.MountPoint), zap.Error(err))
			continue
		}
		if !spec.Autoload {
			continue
		}
		if _, err := n.LoadMount(ctx, spec.MountPoint); err != nil {
			n.log.Error("bootstrap load failed", zap.String("mount_point", spec.MountPoint), zap.Error(err))
		}
	}
}
