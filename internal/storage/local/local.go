// Package local provides a local filesystem storage backend.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Backend implements storage.Backend and storage.Mover over a directory
type Backend struct {
	rootPath string
}

// New creates a local filesystem backend rooted at cfg.RootPath
func New(cfg storage.LocalConfig) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.RootPath)
	if err != nil {
		if os.IsNotExist(err) && cfg.CreateDirs {
			if mkErr := os.MkdirAll(cfg.RootPath, 0755); mkErr != nil {
				return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, mkErr)
			}
		} else {
			return nil, fmt.Errorf("stat root path %s: %w", cfg.RootPath, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}

	root, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root path %s: %w", cfg.RootPath, err)
	}
	return &Backend{rootPath: root}, nil
}

func (b *Backend) Type() string { return storage.TypeLocal }

func (b *Backend) Close() error { return nil }

// fullPath maps a backend path onto the filesystem. Normalize has already
// made it absolute, so Join cannot climb above the root except through "..",
// which is rejected.
func (b *Backend) fullPath(op, path string) (string, error) {
	p := storage.Clean(path)
	for _, part := range paths.Split(p) {
		if part == ".." {
			return "", types.NewError(types.KindValidation, op, p, "path escapes the backend root")
		}
	}
	return filepath.Join(b.rootPath, filepath.FromSlash(p)), nil
}

func (b *Backend) toObject(full string, info fs.FileInfo) storage.Object {
	rel, _ := filepath.Rel(b.rootPath, full)
	obj := storage.Object{
		Path:       storage.Clean(filepath.ToSlash(rel)),
		IsDir:      info.IsDir(),
		ModifiedAt: info.ModTime().UTC(),
	}
	if rel == "." {
		obj.Path = paths.Root
	}
	if !obj.IsDir {
		obj.Size = info.Size()
		obj.ETag = fmt.Sprintf("%x-%x", info.ModTime().UnixNano(), info.Size())
	}
	return obj
}

func translate(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return storage.NotFound(op, path)
	case errors.Is(err, fs.ErrExist):
		return storage.Exists(op, path)
	}
	return types.Wrap(types.KindBackend, op, path, err)
}

// Stat describes path
func (b *Backend) Stat(_ context.Context, path string) (storage.Object, error) {
	full, err := b.fullPath("stat", path)
	if err != nil {
		return storage.Object{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return storage.Object{}, translate("stat", storage.Clean(path), err)
	}
	return b.toObject(full, info), nil
}

// List returns the children of dir, or every descendant when recursive.
// Recursive scans run on fastwalk.
func (b *Backend) List(ctx context.Context, dir string, recursive bool) ([]storage.Object, error) {
	full, err := b.fullPath("list", dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, translate("list", storage.Clean(dir), err)
	}
	if !info.IsDir() {
		return nil, storage.NotFound("list", storage.Clean(dir))
	}

	var out []storage.Object
	if !recursive {
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, translate("list", storage.Clean(dir), err)
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), tempPrefix) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			out = append(out, b.toObject(filepath.Join(full, entry.Name()), info))
		}
		return out, nil
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, full, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || p == full {
			return nil
		}
		if strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		obj := b.toObject(p, info)
		mu.Lock()
		out = append(out, obj)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, translate("list", storage.Clean(dir), err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns a file's content
func (b *Backend) Read(_ context.Context, path string) ([]byte, error) {
	full, err := b.fullPath("read", path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, translate("read", storage.Clean(path), err)
	}
	if info.IsDir() {
		return nil, storage.IsDirError("read", storage.Clean(path))
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, translate("read", storage.Clean(path), err)
	}
	return data, nil
}

const tempPrefix = ".fedfs-"

// Write stores data atomically through a temp file and rename
func (b *Backend) Write(_ context.Context, path string, data []byte) (storage.Object, error) {
	p := storage.Clean(path)
	full, err := b.fullPath("write", p)
	if err != nil {
		return storage.Object{}, err
	}
	if p == paths.Root {
		return storage.Object{}, storage.IsDirError("write", p)
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return storage.Object{}, storage.IsDirError("write", p)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return storage.Object{}, translate("write", p, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return storage.Object{}, translate("write", p, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storage.Object{}, translate("write", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storage.Object{}, translate("write", p, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return storage.Object{}, translate("write", p, err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return storage.Object{}, translate("write", p, err)
	}
	return b.toObject(full, info), nil
}

// Delete removes a file
func (b *Backend) Delete(_ context.Context, path string) error {
	p := storage.Clean(path)
	full, err := b.fullPath("delete", p)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		return translate("delete", p, err)
	}
	if info.IsDir() {
		return storage.IsDirError("delete", p)
	}
	return translate("delete", p, os.Remove(full))
}

// Mkdir creates a directory
func (b *Backend) Mkdir(_ context.Context, path string, parents bool) error {
	p := storage.Clean(path)
	full, err := b.fullPath("mkdir", p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err == nil {
		return storage.Exists("mkdir", p)
	}
	if parents {
		return translate("mkdir", p, os.MkdirAll(full, 0755))
	}
	return translate("mkdir", p, os.Mkdir(full, 0755))
}

// Rmdir removes a directory
func (b *Backend) Rmdir(_ context.Context, path string, recursive bool) error {
	p := storage.Clean(path)
	if p == paths.Root {
		return types.NewError(types.KindValidation, "rmdir", p, "cannot remove the backend root")
	}
	full, err := b.fullPath("rmdir", p)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		return translate("rmdir", p, err)
	}
	if !info.IsDir() {
		return types.NewError(types.KindValidation, "rmdir", p, "not a directory")
	}
	if recursive {
		return translate("rmdir", p, os.RemoveAll(full))
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return translate("rmdir", p, err)
	}
	if len(entries) > 0 {
		return storage.NotEmpty("rmdir", p)
	}
	return translate("rmdir", p, os.Remove(full))
}

// Move renames src to dst with a single rename call
func (b *Backend) Move(_ context.Context, src, dst string) error {
	s, d := storage.Clean(src), storage.Clean(dst)
	fullSrc, err := b.fullPath("move", s)
	if err != nil {
		return err
	}
	fullDst, err := b.fullPath("move", d)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullSrc); err != nil {
		return translate("move", s, err)
	}
	if _, err := os.Stat(fullDst); err == nil {
		return storage.Exists("move", d)
	}
	if err := os.MkdirAll(filepath.Dir(fullDst), 0755); err != nil {
		return translate("move", d, err)
	}
	return translate("move", s, os.Rename(fullSrc, fullDst))
}
