package namespace

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// DeleteMany deletes each path, continuing past failures. When any item
// fails the result is returned with a PartialFailure error listing them.
func (c *Client) DeleteMany(ctx context.Context, paths []string) (types.BatchResult, error) {
	return runBatch(ctx, c.log, "delete_many", paths, func(p string) error {
		return c.Delete(ctx, p)
	})
}

// UnloadMany deactivates each mount point, continuing past failures.
func (s *MountStore) UnloadMany(ctx context.Context, mountPoints []string) (types.BatchResult, error) {
	return runBatch(ctx, s.log, "unload_many", mountPoints, func(mp string) error {
		return s.Unload(ctx, mp)
	})
}

// runBatch stops early only when ctx ends, returning what was done so far.
func runBatch(ctx context.Context, log *logging.Logger, op string, items []string, fn func(string) error) (types.BatchResult, error) {
	result := types.BatchResult{Succeeded: make([]string, 0, len(items))}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := fn(item); err != nil {
			result.Failures = append(result.Failures, types.Failure(item, err))
			continue
		}
		result.Succeeded = append(result.Succeeded, item)
	}

	if result.Failed() {
		log.Warn("batch completed with failures",
			zap.String("op", op),
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failures)))
		return result, types.PartialFailure(op, result.Failures)
	}
	return result, nil
}
