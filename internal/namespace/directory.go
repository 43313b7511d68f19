package namespace

import (
	"context"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// List returns the entries under path. Recursive defaults to false and Details to true.
func (c *Client) List(ctx context.Context, path string, opts types.ListOptions) ([]types.FileEntry, error) {
	p := paths.Normalize(path)
	params := rpc.Params{
		"path":      p,
		"recursive": types.BoolOr(opts.Recursive, false),
		"details":   types.BoolOr(opts.Details, true),
	}
	params.Opt("prefix", opts.Prefix).Opt("show_parsed", opts.ShowParsed)

	var out listResult
	if err := c.call(ctx, methodList, p, params, &out); err != nil {
		return nil, err
	}
	entries, err := decodeEntries(p, out.Files)
	if err != nil {
		return nil, types.Wrap(types.KindBackend, methodList, p, err)
	}
	return entries, nil
}

// ListEnriched lists path and annotates entries that sit exactly on an active
// mount point. It fails as a whole if either the listing or the mount snapshot
// fails, or if ctx ends before enrichment.
func (c *Client) ListEnriched(ctx context.Context, path string, opts types.ListOptions) ([]types.FileEntry, error) {
	entries, err := c.List(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	mounts, err := c.registry.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Enrich(entries, mounts), nil
}

// Mkdir creates a directory. Parents defaults to true; ExistOK to false.
func (c *Client) Mkdir(ctx context.Context, path string, opts types.MkdirOptions) error {
	p, err := requireNonRoot(methodMkdir, path)
	if err != nil {
		return err
	}
	return c.call(ctx, methodMkdir, p, rpc.Params{
		"path":     p,
		"parents":  types.BoolOr(opts.Parents, true),
		"exist_ok": opts.ExistOK,
	}, nil)
}

// Rmdir removes a directory; a non-empty one only when recursive is set.
func (c *Client) Rmdir(ctx context.Context, path string, recursive bool) error {
	p, err := requireNonRoot(methodRmdir, path)
	if err != nil {
		return err
	}
	return c.call(ctx, methodRmdir, p, rpc.Params{"path": p, "recursive": recursive}, nil)
}
