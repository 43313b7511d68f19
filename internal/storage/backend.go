// Package storage defines the Backend interface implemented by every storage
// integration a mount can bind to, and the typed per-backend configurations.
package storage

import (
	"context"
	"time"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Object describes one entry held by a backend. Path is relative to the
// backend root and always starts with a separator.
type Object struct {
	Path        string
	IsDir       bool
	Size        int64
	ContentType string
	ETag        string
	ModifiedAt  time.Time
}

// Backend is the interface for storage backends. Paths are backend-relative
// and normalized; "/" is the backend root. Missing objects are reported as
// types.KindNotFound errors.
type Backend interface {
	// Type returns the backend type identifier ("MemoryBackend", "LocalBackend", "S3Backend").
	Type() string

	// Stat describes a single object or directory.
	Stat(ctx context.Context, path string) (Object, error)

	// List returns the children of dir, or every descendant when recursive.
	List(ctx context.Context, dir string, recursive bool) ([]Object, error)

	// Read returns the full content of a file.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write creates or replaces a file, creating missing parents.
	Write(ctx context.Context, path string, data []byte) (Object, error)

	// Delete removes a file. Directories are removed with Rmdir.
	Delete(ctx context.Context, path string) error

	// Mkdir creates a directory.
	Mkdir(ctx context.Context, path string, parents bool) error

	// Rmdir removes a directory; a non-empty one only when recursive.
	Rmdir(ctx context.Context, path string, recursive bool) error

	// Close releases any resources held by the backend.
	Close() error
}

// Mover is implemented by backends that can move an object in one step.
type Mover interface {
	Move(ctx context.Context, src, dst string) error
}

// NotFound builds the error a backend returns for a missing path.
func NotFound(op, path string) error {
	return types.NewError(types.KindNotFound, op, path, "no such file or directory")
}

// IsDirError builds the error for a file operation addressed to a directory.
func IsDirError(op, path string) error {
	return types.NewError(types.KindValidation, op, path, "is a directory")
}

// NotEmpty builds the error for a non-recursive rmdir of a populated directory.
func NotEmpty(op, path string) error {
	return types.NewError(types.KindValidation, op, path, "directory not empty")
}

// Exists builds the error for creating something that is already there.
func Exists(op, path string) error {
	return types.NewError(types.KindValidation, op, path, "already exists")
}

// Clean normalizes a backend-relative path.
func Clean(path string) string {
	return paths.Normalize(path)
}

// Children filters a recursive listing down to the direct children of dir,
// synthesizing intermediate directories that have no object of their own.
func Children(dir string, all []Object) []Object {
	d := Clean(dir)
	seen := make(map[string]bool)
	var out []Object
	for _, obj := range all {
		rel, err := paths.Rel(obj.Path, d)
		if err != nil || rel == "" {
			continue
		}
		parts := paths.Split(rel)
		child := paths.Join(d, parts[0])
		if seen[child] {
			continue
		}
		seen[child] = true
		if len(parts) == 1 {
			out = append(out, obj)
			continue
		}
		out = append(out, Object{Path: child, IsDir: true})
	}
	return out
}
