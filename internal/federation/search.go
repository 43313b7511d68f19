package federation

import (
	"bufio"
	"bytes"
	"context"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// DefaultMaxResults caps grep when the caller gives no limit
const DefaultMaxResults = 100

// GrepOptions narrows a content search
type GrepOptions struct {
	Path        string
	FilePattern string
	IgnoreCase  bool
	MaxResults  int
}

// Glob returns the paths under dir whose dir-relative path matches pattern
func (n *Namespace) Glob(ctx context.Context, pattern, dir string) ([]string, error) {
	d := paths.Normalize(dir)
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil, types.Errorf(types.KindValidation, "glob", d, "invalid pattern %q", pattern)
	}

	entries, err := n.List(ctx, d, ListOptions{Recursive: true})
	if err != nil {
		return nil, err
	}

	matches := []string{}
	for _, e := range entries {
		rel, err := paths.Rel(e.Path, d)
		if err != nil {
			continue
		}
		target := rel
		if pattern[0] == '/' {
			target = e.Path
		}
		if ok, _ := doublestar.Match(pattern, target); ok {
			matches = append(matches, e.Path)
		}
	}
	return matches, nil
}

// Grep searches text files under opts.Path for lines matching pattern. The
// result count, not the number of files scanned, is capped at MaxResults.
func (n *Namespace) Grep(ctx context.Context, pattern string, opts GrepOptions) ([]types.GrepMatch, error) {
	root := paths.Normalize(opts.Path)
	expr := pattern
	if opts.IgnoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, types.Errorf(types.KindValidation, "grep", root, "invalid pattern: %v", err)
	}
	if opts.FilePattern != "" && !doublestar.ValidatePattern(opts.FilePattern) {
		return nil, types.Errorf(types.KindValidation, "grep", root, "invalid file pattern %q", opts.FilePattern)
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	target, err := n.Stat(ctx, root)
	if err != nil {
		return nil, err
	}
	files := []types.FileEntry{target}
	if target.IsDirectory {
		files, err = n.List(ctx, root, ListOptions{Recursive: true})
		if err != nil {
			return nil, err
		}
	}

	matches := []types.GrepMatch{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.IsDirectory {
			continue
		}
		if opts.FilePattern != "" {
			ok, _ := doublestar.Match(opts.FilePattern, f.Name())
			if !ok {
				continue
			}
		}

		data, err := n.Read(ctx, f.Path)
		if err != nil {
			n.log.Debug("grep skipped unreadable file", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		if !isText(data) {
			continue
		}

		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			if !re.Match(scanner.Bytes()) {
				continue
			}
			matches = append(matches, types.GrepMatch{Path: f.Path, Line: line, Content: scanner.Text()})
			if len(matches) >= limit {
				return matches, nil
			}
		}
	}
	return matches, nil
}

func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
