// Package memory provides an in-process storage backend.
package memory

import (
	"context"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
)

type file struct {
	data     []byte
	etag     string
	modified time.Time
}

// Backend implements storage.Backend and storage.Mover in memory
type Backend struct {
	mu    sync.RWMutex
	files map[string]*file
	dirs  map[string]time.Time
	now   func() time.Time
}

// New creates an empty memory backend
func New(storage.MemoryConfig) *Backend {
	return &Backend{
		files: make(map[string]*file),
		dirs:  map[string]time.Time{paths.Root: time.Now().UTC()},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (b *Backend) Type() string { return storage.TypeMemory }

func (b *Backend) Close() error { return nil }

func etag(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func (b *Backend) object(p string) (storage.Object, bool) {
	if f, ok := b.files[p]; ok {
		return storage.Object{Path: p, Size: int64(len(f.data)), ETag: f.etag, ModifiedAt: f.modified}, true
	}
	if t, ok := b.dirs[p]; ok {
		return storage.Object{Path: p, IsDir: true, ModifiedAt: t}, true
	}
	return storage.Object{}, false
}

// Stat describes path
func (b *Backend) Stat(_ context.Context, path string) (storage.Object, error) {
	p := storage.Clean(path)
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.object(p)
	if !ok {
		return storage.Object{}, storage.NotFound("stat", p)
	}
	return obj, nil
}

// List returns the children of dir, or all descendants when recursive
func (b *Backend) List(_ context.Context, dir string, recursive bool) ([]storage.Object, error) {
	d := storage.Clean(dir)
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.dirs[d]; !ok {
		return nil, storage.NotFound("list", d)
	}

	var out []storage.Object
	collect := func(p string) {
		if p == d || !paths.IsWithin(p, d) {
			return
		}
		if !recursive && paths.Parent(p) != d {
			return
		}
		obj, _ := b.object(p)
		out = append(out, obj)
	}
	for p := range b.dirs {
		collect(p)
	}
	for p := range b.files {
		collect(p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns a copy of the file content
func (b *Backend) Read(_ context.Context, path string) ([]byte, error) {
	p := storage.Clean(path)
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.files[p]
	if !ok {
		return nil, storage.NotFound("read", p)
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

// Write stores data at path, creating parent directories
func (b *Backend) Write(_ context.Context, path string, data []byte) (storage.Object, error) {
	p := storage.Clean(path)
	if p == paths.Root {
		return storage.Object{}, storage.IsDirError("write", p)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.dirs[p]; ok {
		return storage.Object{}, storage.IsDirError("write", p)
	}
	b.mkdirAll(paths.Parent(p))

	buf := make([]byte, len(data))
	copy(buf, data)
	b.files[p] = &file{data: buf, etag: etag(buf), modified: b.now()}
	obj, _ := b.object(p)
	return obj, nil
}

// Delete removes a file
func (b *Backend) Delete(_ context.Context, path string) error {
	p := storage.Clean(path)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.dirs[p]; ok {
		return storage.IsDirError("delete", p)
	}
	if _, ok := b.files[p]; !ok {
		return storage.NotFound("delete", p)
	}
	delete(b.files, p)
	return nil
}

// Mkdir creates a directory
func (b *Backend) Mkdir(_ context.Context, path string, parents bool) error {
	p := storage.Clean(path)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[p]; ok {
		return storage.Exists("mkdir", p)
	}
	if _, ok := b.dirs[p]; ok {
		return storage.Exists("mkdir", p)
	}
	if !parents {
		if _, ok := b.dirs[paths.Parent(p)]; !ok {
			return storage.NotFound("mkdir", paths.Parent(p))
		}
	}
	b.mkdirAll(p)
	return nil
}

func (b *Backend) mkdirAll(p string) {
	for cur := p; ; cur = paths.Parent(cur) {
		if _, ok := b.dirs[cur]; ok {
			return
		}
		b.dirs[cur] = b.now()
		if cur == paths.Root {
			return
		}
	}
}

// Rmdir removes a directory
func (b *Backend) Rmdir(_ context.Context, path string, recursive bool) error {
	p := storage.Clean(path)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.dirs[p]; !ok {
		return storage.NotFound("rmdir", p)
	}

	var inside []string
	for d := range b.dirs {
		if d != p && paths.IsWithin(d, p) {
			inside = append(inside, d)
		}
	}
	var files []string
	for f := range b.files {
		if paths.IsWithin(f, p) {
			files = append(files, f)
		}
	}
	if !recursive && len(inside)+len(files) > 0 {
		return storage.NotEmpty("rmdir", p)
	}

	for _, f := range files {
		delete(b.files, f)
	}
	for _, d := range inside {
		delete(b.dirs, d)
	}
	if p != paths.Root {
		delete(b.dirs, p)
	}
	return nil
}

// Move renames a file or directory subtree in one step
func (b *Backend) Move(_ context.Context, src, dst string) error {
	s, d := storage.Clean(src), storage.Clean(dst)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.object(s); !ok {
		return storage.NotFound("move", s)
	}
	if _, ok := b.object(d); ok {
		return storage.Exists("move", d)
	}
	if paths.IsWithin(d, s) {
		return storage.IsDirError("move", d)
	}
	b.mkdirAll(paths.Parent(d))

	files := make(map[string]*file)
	for p, f := range b.files {
		if rel, err := paths.Rel(p, s); err == nil {
			files[paths.Join(d, rel)] = f
			delete(b.files, p)
		}
	}
	dirs := make(map[string]time.Time)
	for p, t := range b.dirs {
		if rel, err := paths.Rel(p, s); err == nil {
			dirs[paths.Join(d, rel)] = t
			delete(b.dirs, p)
		}
	}
	for p, f := range files {
		b.files[p] = f
	}
	for p, t := range dirs {
		b.dirs[p] = t
	}
	return nil
}
