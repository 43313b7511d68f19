package federation

import (
	"sort"
	"sync"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
)

// metaCache is a mount's cached view of its backend, keyed by
// backend-relative path. The backend root is implicit.
type metaCache struct {
	mu      sync.RWMutex
	objects map[string]storage.Object
}

func newMetaCache(objs []storage.Object) *metaCache {
	c := &metaCache{objects: make(map[string]storage.Object, len(objs))}
	for _, obj := range objs {
		c.putLocked(obj)
	}
	return c
}

func (c *metaCache) get(p string) (storage.Object, bool) {
	if p == paths.Root {
		return storage.Object{Path: paths.Root, IsDir: true}, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[p]
	return obj, ok
}

func (c *metaCache) put(obj storage.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(obj)
}

// putLocked stores obj and any missing ancestor directories.
func (c *metaCache) putLocked(obj storage.Object) {
	obj.Path = storage.Clean(obj.Path)
	if obj.Path == paths.Root {
		return
	}
	c.objects[obj.Path] = obj
	for parent := paths.Parent(obj.Path); parent != paths.Root; parent = paths.Parent(parent) {
		if _, ok := c.objects[parent]; ok {
			return
		}
		c.objects[parent] = storage.Object{Path: parent, IsDir: true}
	}
}

// remove drops p and everything below it
func (c *metaCache) remove(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.objects {
		if paths.IsWithin(key, p) {
			delete(c.objects, key)
		}
	}
}

// move re-keys the subtree at src under dst
func (c *metaCache) move(src, dst string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	moved := make([]storage.Object, 0)
	for key, obj := range c.objects {
		if rel, err := paths.Rel(key, src); err == nil {
			delete(c.objects, key)
			obj.Path = paths.Join(dst, rel)
			moved = append(moved, obj)
		}
	}
	for _, obj := range moved {
		c.putLocked(obj)
	}
}

// list returns the cached children of dir, or all descendants
func (c *metaCache) list(dir string, recursive bool) []storage.Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []storage.Object
	for key, obj := range c.objects {
		if key == dir || !paths.IsWithin(key, dir) {
			continue
		}
		if !recursive && paths.Parent(key) != dir {
			continue
		}
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (c *metaCache) snapshot() map[string]storage.Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]storage.Object, len(c.objects))
	for k, v := range c.objects {
		out[k] = v
	}
	return out
}

// apply installs a reconciled view: upserts first, then deletions
func (c *metaCache) apply(upserts []storage.Object, deletes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, obj := range upserts {
		c.putLocked(obj)
	}
	for _, p := range deletes {
		delete(c.objects, p)
	}
}

func (c *metaCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
