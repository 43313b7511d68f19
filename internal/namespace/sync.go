package namespace

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// SyncEngine triggers mount reconciliation on the server. At most one sync
// per mount point is in flight from a given engine.
type SyncEngine struct {
	caller rpc.Caller
	log    *logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSyncEngine creates a sync engine over caller
func NewSyncEngine(caller rpc.Caller, log *logging.Logger) *SyncEngine {
	return &SyncEngine{caller: caller, log: log, inflight: make(map[string]struct{})}
}

// Sync reconciles mountPoint. Recursive defaults to true. A dry run reports
// counts without changing anything. When some objects failed the counts are
// returned along with a PartialFailure error.
func (e *SyncEngine) Sync(ctx context.Context, mountPoint string, opts types.SyncOptions) (types.SyncResult, error) {
	mp, err := requireNonRoot(methodSyncMount, mountPoint)
	if err != nil {
		return types.SyncResult{}, err
	}
	if !e.acquire(mp) {
		return types.SyncResult{}, types.NewError(types.KindValidation, methodSyncMount, mp, "sync already in progress")
	}
	defer e.release(mp)

	var raw json.RawMessage
	params := rpc.Params{
		"mount_point": mp,
		"recursive":   types.BoolOr(opts.Recursive, true),
		"dry_run":     opts.DryRun,
	}
	if err := e.caller.Call(ctx, methodSyncMount, params, &raw); err != nil {
		return types.SyncResult{}, withPath(err, mp)
	}

	result, failures, err := DecodeSyncResult(raw)
	if err != nil {
		return types.SyncResult{}, types.Wrap(types.KindBackend, methodSyncMount, mp, err)
	}

	e.log.Debug("sync finished",
		zap.String("mount_point", mp),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("scanned", result.FilesScanned),
		zap.Int("errors", result.Errors))

	if result.Errors > 0 {
		e.log.Warn("sync completed with errors", zap.String("mount_point", mp), zap.Int("errors", result.Errors))
		perr := types.PartialFailure(methodSyncMount, failures)
		perr.Path = mp
		perr.Message = fmt.Sprintf("%d object(s) failed", result.Errors)
		return result, perr
	}
	return result, nil
}

// InFlight reports whether a sync of mountPoint is running.
func (e *SyncEngine) InFlight(mountPoint string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inflight[mountPoint]
	return ok
}

func (e *SyncEngine) acquire(mp string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[mp]; busy {
		return false
	}
	e.inflight[mp] = struct{}{}
	return true
}

func (e *SyncEngine) release(mp string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, mp)
}

// syncSchema maps one protocol version's field names onto SyncResult.
type syncSchema struct {
	version  string
	scanned  []string
	created  []string
	updated  []string
	deleted  []string
	errors   []string
	failures []string
}

// Newest first. Each field is read from the first alias present in the
// payload, across every version, so a payload mixing names still decodes.
var syncSchemas = []syncSchema{
	{
		version:  "v2",
		scanned:  []string{"files_scanned", "filesScanned"},
		created:  []string{"files_created", "filesCreated"},
		updated:  []string{"files_updated", "filesUpdated"},
		deleted:  []string{"files_deleted", "filesDeleted"},
		errors:   []string{"errors"},
		failures: []string{"failures"},
	},
	{
		version:  "v1",
		scanned:  []string{"files_found", "filesFound"},
		created:  []string{"files_added", "filesAdded"},
		updated:  []string{"files_modified", "filesModified"},
		deleted:  []string{"files_removed", "filesRemoved"},
		errors:   []string{"error_count", "errorCount"},
		failures: []string{"failures"},
	},
}

// aliases collects one field's names from every schema, newest first
func aliases(field func(syncSchema) []string) []string {
	var keys []string
	for _, s := range syncSchemas {
		keys = append(keys, field(s)...)
	}
	return keys
}

// DecodeSyncResult reads a sync payload from any known protocol version,
// coalescing each count field independently. Absent fields count as zero.
func DecodeSyncResult(raw json.RawMessage) (types.SyncResult, []types.ItemFailure, error) {
	var obj map[string]interface{}
	if err := rpc.Unmarshal(raw, &obj); err != nil {
		return types.SyncResult{}, nil, fmt.Errorf("invalid sync result: %w", err)
	}

	errorKeys := aliases(func(s syncSchema) []string { return s.errors })
	result := types.SyncResult{
		FilesScanned: countField(obj, aliases(func(s syncSchema) []string { return s.scanned })),
		FilesCreated: countField(obj, aliases(func(s syncSchema) []string { return s.created })),
		FilesUpdated: countField(obj, aliases(func(s syncSchema) []string { return s.updated })),
		FilesDeleted: countField(obj, aliases(func(s syncSchema) []string { return s.deleted })),
		Errors:       countField(obj, errorKeys),
	}
	failures := failureField(obj, aliases(func(s syncSchema) []string { return s.failures }))
	if len(failures) == 0 {
		failures = failureField(obj, errorKeys)
	}
	return result, failures, nil
}

// countField reads the first present key as a count. A list counts its length.
func countField(obj map[string]interface{}, keys []string) int {
	for _, key := range keys {
		switch v := unwrap(obj[key]).(type) {
		case float64:
			return int(v)
		case []interface{}:
			return len(v)
		}
	}
	return 0
}

func failureField(obj map[string]interface{}, keys []string) []types.ItemFailure {
	for _, key := range keys {
		list, ok := obj[key].([]interface{})
		if !ok {
			continue
		}
		items := make([]types.ItemFailure, 0, len(list))
		for _, v := range list {
			item := types.ItemFailure{Kind: types.KindBackend}
			switch f := v.(type) {
			case string:
				item.Message = f
			case map[string]interface{}:
				item.Path, _ = f["path"].(string)
				item.Message, _ = f["message"].(string)
				if k, ok := f["kind"].(string); ok {
					_ = item.Kind.UnmarshalText([]byte(k))
				}
			}
			items = append(items, item)
		}
		return items
	}
	return nil
}
