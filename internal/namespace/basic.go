package namespace

import (
	"context"
	"unicode/utf8"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Read returns the content of a file. Directories and missing paths are NotFound.
func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := requirePath(methodRead, path)
	if err != nil {
		return nil, err
	}
	if paths.IsRoot(p) {
		return nil, types.NewError(types.KindNotFound, methodRead, p, "is a directory")
	}
	var content rpc.Blob
	if err := c.call(ctx, methodRead, p, rpc.Params{"path": p}, &content); err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// Write stores content at path, replacing any existing file.
func (c *Client) Write(ctx context.Context, path string, content []byte) error {
	p, err := requireNonRoot(methodWrite, path)
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	return c.call(ctx, methodWrite, p, rpc.Params{"path": p, "content": rpc.Blob(content)}, nil)
}

// WriteText stores text as UTF-8 bytes. Text that is not valid UTF-8 is rejected.
func (c *Client) WriteText(ctx context.Context, path, text string) error {
	if !utf8.ValidString(text) {
		return types.NewError(types.KindValidation, methodWrite, paths.Normalize(path), "text is not valid UTF-8")
	}
	return c.Write(ctx, path, []byte(text))
}

// Delete removes a file. Non-empty directories need Rmdir.
func (c *Client) Delete(ctx context.Context, path string) error {
	p, err := requireNonRoot(methodDelete, path)
	if err != nil {
		return err
	}
	return c.call(ctx, methodDelete, p, rpc.Params{"path": p}, nil)
}

// Exists reports whether path names a file or directory.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	p := paths.Normalize(path)
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := c.call(ctx, methodExists, p, rpc.Params{"path": p}, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// IsDirectory reports whether path names a directory.
func (c *Client) IsDirectory(ctx context.Context, path string) (bool, error) {
	p := paths.Normalize(path)
	var out struct {
		IsDirectory bool `json:"is_directory"`
	}
	if err := c.call(ctx, methodIsDirectory, p, rpc.Params{"path": p}, &out); err != nil {
		return false, err
	}
	return out.IsDirectory, nil
}
