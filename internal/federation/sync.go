package federation

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// SyncReport is the outcome of one reconciliation pass
type SyncReport struct {
	types.SyncResult
	Failures []types.ItemFailure `json:"failures,omitempty"`
}

// Sync rescans a mount's backend and reconciles the metadata cache with it.
// Every visited object counts as scanned; each one is at most one of created,
// updated or deleted. A directory that cannot be listed is a per-object error
// and the pass continues. A dry run computes the same counts without touching
// the cache.
func (n *Namespace) Sync(ctx context.Context, mountPoint string, recursive, dryRun bool) (SyncReport, error) {
	mp := paths.Normalize(mountPoint)
	n.mu.RLock()
	m, ok := n.mounts[mp]
	n.mu.RUnlock()
	if !ok {
		return SyncReport{}, types.NewError(types.KindNotFound, "sync_mount", mp, "mount is not active")
	}
	if !m.syncing.TryLock() {
		return SyncReport{}, types.NewError(types.KindValidation, "sync_mount", mp, "sync already in progress")
	}
	defer m.syncing.Unlock()

	report, upserts, deletes, err := n.reconcile(ctx, m, recursive)
	if err != nil {
		return SyncReport{}, err
	}
	if !dryRun {
		m.cache.apply(upserts, deletes)
	}

	if n.metrics != nil {
		n.metrics.RecordSync(dryRun, report.FilesScanned, report.FilesCreated, report.FilesUpdated, report.FilesDeleted, report.Errors)
	}
	n.log.Info("mount synced",
		zap.String("mount_point", mp),
		zap.Bool("dry_run", dryRun),
		zap.Int("scanned", report.FilesScanned),
		zap.Int("created", report.FilesCreated),
		zap.Int("updated", report.FilesUpdated),
		zap.Int("deleted", report.FilesDeleted),
		zap.Int("errors", report.Errors))
	if !dryRun && report.Changed() > 0 {
		n.publish(types.EventSync, mp, mp)
	}
	return report, nil
}

// reconcile walks the backend one directory at a time and diffs what it sees
// against the cache.
func (n *Namespace) reconcile(ctx context.Context, m *activeMount, recursive bool) (SyncReport, []storage.Object, []string, error) {
	var (
		report  SyncReport
		upserts []storage.Object
		seen    = make(map[string]bool)
		scanned = make(map[string]bool)
		failed  []string
	)
	cached := m.cache.snapshot()

	queue := []string{paths.Root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return SyncReport{}, nil, nil, err
		}
		dir := queue[0]
		queue = queue[1:]

		objs, err := m.backend.List(ctx, dir, false)
		if err != nil {
			if dir == paths.Root {
				return SyncReport{}, nil, nil, rebase("sync_mount", m.Point(), err)
			}
			report.Errors++
			report.Failures = append(report.Failures, types.Failure(paths.Join(m.Point(), dir), rebase("sync_mount", paths.Join(m.Point(), dir), err)))
			failed = append(failed, dir)
			continue
		}
		scanned[dir] = true

		for _, obj := range objs {
			obj.Path = storage.Clean(obj.Path)
			report.FilesScanned++
			seen[obj.Path] = true

			prev, ok := cached[obj.Path]
			switch {
			case !ok:
				report.FilesCreated++
				upserts = append(upserts, obj)
			case changed(prev, obj):
				report.FilesUpdated++
				if prev.ETag == obj.ETag && obj.ContentType == "" {
					obj.ContentType = prev.ContentType
				}
				upserts = append(upserts, obj)
			}
			if obj.IsDir && recursive {
				queue = append(queue, obj.Path)
			}
		}
	}

	// A cached entry is gone when its directory was listed without it, or
	// when an ancestor is gone.
	keys := make([]string, 0, len(cached))
	for p := range cached {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	gone := make(map[string]bool)
	var deletes []string
	for _, p := range keys {
		if seen[p] || underAny(p, failed) {
			continue
		}
		parent := paths.Parent(p)
		if scanned[parent] || gone[parent] {
			gone[p] = true
			report.FilesDeleted++
			deletes = append(deletes, p)
		}
	}
	return report, upserts, deletes, nil
}

func changed(prev, cur storage.Object) bool {
	if prev.IsDir != cur.IsDir {
		return true
	}
	if cur.IsDir {
		return false
	}
	if prev.ETag != "" && cur.ETag != "" {
		return prev.ETag != cur.ETag
	}
	return prev.Size != cur.Size || !prev.ModifiedAt.Equal(cur.ModifiedAt)
}

func underAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if paths.IsWithin(p, d) {
			return true
		}
	}
	return false
}
