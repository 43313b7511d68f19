package namespace

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// DefaultMaxResults caps grep results when the caller sets no limit
const DefaultMaxResults = 100

// Glob returns the paths under root that match pattern. An empty root is "/".
func (c *Client) Glob(ctx context.Context, pattern, root string) ([]string, error) {
	if pattern == "" {
		return nil, types.NewError(types.KindValidation, methodGlob, "", "pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, types.Errorf(types.KindValidation, methodGlob, "", "invalid pattern %q", pattern)
	}
	p := paths.Normalize(root)

	var out struct {
		Matches []string `json:"matches"`
	}
	if err := c.call(ctx, methodGlob, p, rpc.Params{"pattern": pattern, "path": p}, &out); err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, paths.Normalize(m))
	}
	return matches, nil
}

// Grep searches file contents. Path defaults to "/" and MaxResults to 100; the
// result count never exceeds MaxResults.
func (c *Client) Grep(ctx context.Context, pattern string, opts types.GrepOptions) ([]types.GrepMatch, error) {
	if pattern == "" {
		return nil, types.NewError(types.KindValidation, methodGrep, "", "pattern is required")
	}
	if opts.FilePattern != "" && !doublestar.ValidatePattern(opts.FilePattern) {
		return nil, types.Errorf(types.KindValidation, methodGrep, "", "invalid file pattern %q", opts.FilePattern)
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	p := paths.Normalize(opts.Path)

	params := rpc.Params{
		"pattern":     pattern,
		"path":        p,
		"ignore_case": opts.IgnoreCase,
		"max_results": maxResults,
	}
	params.Opt("file_pattern", opts.FilePattern)

	var out struct {
		Results []types.GrepMatch `json:"results"`
	}
	if err := c.call(ctx, methodGrep, p, params, &out); err != nil {
		return nil, err
	}
	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	return out.Results, nil
}
