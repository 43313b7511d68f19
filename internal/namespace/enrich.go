package namespace

import (
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Enrich returns a new slice in which every entry whose path is exactly an
// active mount point carries that mount's provenance. Entries below a mount
// point are copied unchanged. The input is not modified.
func Enrich(entries []types.FileEntry, mounts []types.Mount) []types.FileEntry {
	out := make([]types.FileEntry, len(entries))
	for i, e := range entries {
		if m := paths.FindMountForPath(e.Path, mounts); m != nil {
			out[i] = e.WithProvenance(*m)
			continue
		}
		out[i] = e
	}
	return out
}
