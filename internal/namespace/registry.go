package namespace

import (
	"context"
	"sort"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Registry reads the server's live mount table. Every call is a fresh
// snapshot; nothing is cached here.
type Registry struct {
	caller rpc.Caller
}

// NewRegistry creates a registry over caller
func NewRegistry(caller rpc.Caller) *Registry {
	return &Registry{caller: caller}
}

// ListActive returns the active mounts ordered by mount point. A failed fetch
// is an error, never an empty set.
func (r *Registry) ListActive(ctx context.Context) ([]types.Mount, error) {
	return r.list(ctx, methodListMounts)
}

func (r *Registry) list(ctx context.Context, method string) ([]types.Mount, error) {
	var mounts []types.Mount
	if err := r.caller.Call(ctx, method, nil, &mounts); err != nil {
		return nil, err
	}
	out := make([]types.Mount, 0, len(mounts))
	for _, m := range mounts {
		m.MountPoint = paths.Normalize(m.MountPoint)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MountPoint < out[j].MountPoint })
	return out, nil
}

// Lookup returns the active mount whose mount point is exactly path.
func (r *Registry) Lookup(ctx context.Context, path string) (*types.Mount, error) {
	mounts, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return paths.FindMountForPath(path, mounts), nil
}
