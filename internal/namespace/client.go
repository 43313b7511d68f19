package namespace

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Options configures a Client
type Options struct {
	Logger *logging.Logger
	// Journal records composed renames; a MemoryJournal when nil
	Journal RenameJournal
	// ServerMove tries the server's rename method before composing one
	ServerMove bool
}

// Client is the namespace operation façade
type Client struct {
	caller     rpc.Caller
	log        *logging.Logger
	journal    RenameJournal
	serverMove bool

	registry *Registry
	mounts   *MountStore
	sync     *SyncEngine
}

// New creates a client over caller.
func New(caller rpc.Caller, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Journal == nil {
		opts.Journal = NewMemoryJournal()
	}
	log := opts.Logger.Component("namespace")

	return &Client{
		caller:     caller,
		log:        log,
		journal:    opts.Journal,
		serverMove: opts.ServerMove,
		registry:   NewRegistry(caller),
		mounts:     NewMountStore(caller, log),
		sync:       NewSyncEngine(caller, log),
	}
}

// Registry returns the active mount registry
func (c *Client) Registry() *Registry { return c.registry }

// Mounts returns the saved mount store
func (c *Client) Mounts() *MountStore { return c.mounts }

// Sync returns the sync engine
func (c *Client) Sync() *SyncEngine { return c.sync }

// Journal returns the rename journal
func (c *Client) Journal() RenameJournal { return c.journal }

// ListMounts returns the active mounts.
func (c *Client) ListMounts(ctx context.Context) ([]types.Mount, error) {
	return c.registry.ListActive(ctx)
}

// ListConnectors returns the active mounts through the connector alias.
func (c *Client) ListConnectors(ctx context.Context) ([]types.Mount, error) {
	return c.registry.list(ctx, methodListConnectors)
}

// ListSavedMounts returns every saved mount configuration.
func (c *Client) ListSavedMounts(ctx context.Context) ([]types.SavedMount, error) {
	return c.mounts.ListSaved(ctx)
}

// ListSavedConnectors returns saved configurations through the connector alias.
func (c *Client) ListSavedConnectors(ctx context.Context) ([]types.SavedMount, error) {
	return c.mounts.listSaved(ctx, methodListSavedConnectors)
}

func (c *Client) call(ctx context.Context, method, path string, params rpc.Params, result interface{}) error {
	c.log.Debug("call", zap.String("method", method), zap.String("path", path))
	if err := c.caller.Call(ctx, method, params, result); err != nil {
		return withPath(err, path)
	}
	return nil
}

// withPath fills in the path on namespace errors that lack one.
func withPath(err error, path string) error {
	if te, ok := err.(*types.Error); ok && te.Path == "" && path != "" {
		out := *te
		out.Path = path
		return &out
	}
	return err
}

// requirePath normalizes a required path, rejecting empty input.
func requirePath(op, path string) (string, error) {
	if path == "" {
		return "", types.NewError(types.KindValidation, op, "", "path is required")
	}
	return paths.Normalize(path), nil
}

// requireNonRoot is requirePath that also refuses the namespace root.
func requireNonRoot(op, path string) (string, error) {
	p, err := requirePath(op, path)
	if err != nil {
		return "", err
	}
	if paths.IsRoot(p) {
		return "", types.NewError(types.KindValidation, op, p, "operation not allowed on the root")
	}
	return p, nil
}
