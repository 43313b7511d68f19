package federation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// ListOptions selects what List returns
type ListOptions struct {
	Recursive bool
	// Prefix keeps only entries whose name starts with it
	Prefix string
}

// rebase re-addresses a backend error to the namespace path p
func rebase(op, p string, err error) error {
	var te *types.Error
	if errors.As(err, &te) {
		out := *te
		out.Op, out.Path = op, p
		return &out
	}
	return types.Wrap(types.KindBackend, op, p, err)
}

// holdsMount reports whether p is an active mount point or an ancestor of one
func (n *Namespace) holdsMount(p string) bool {
	for _, m := range n.activeList() {
		if paths.IsWithin(m.Point(), p) {
			return true
		}
	}
	return false
}

func toEntry(p string, obj storage.Object) types.FileEntry {
	entry := types.NewFileEntry(p, obj.IsDir)
	if !obj.IsDir {
		size := obj.Size
		entry.Size = &size
		entry.ContentType = obj.ContentType
		entry.ETag = obj.ETag
	}
	if !obj.ModifiedAt.IsZero() {
		mod := obj.ModifiedAt
		entry.ModifiedAt = &mod
	}
	return entry
}

// stat describes a namespace path. Mount points and their ancestors are
// always directories.
func (n *Namespace) stat(ctx context.Context, op, p string) (storage.Object, error) {
	if p == paths.Root || n.holdsMount(p) {
		return storage.Object{Path: p, IsDir: true}, nil
	}
	r := n.resolve(p)
	if r.mount != nil {
		obj, ok := r.mount.cache.get(r.rel)
		if !ok {
			return storage.Object{}, storage.NotFound(op, p)
		}
		obj.Path = p
		return obj, nil
	}
	obj, err := r.backend.Stat(ctx, r.rel)
	if err != nil {
		return storage.Object{}, rebase(op, p, err)
	}
	obj.Path = p
	return obj, nil
}

// Stat returns the entry at path
func (n *Namespace) Stat(ctx context.Context, path string) (types.FileEntry, error) {
	p := paths.Normalize(path)
	obj, err := n.stat(ctx, "stat", p)
	if err != nil {
		return types.FileEntry{}, err
	}
	return toEntry(p, obj), nil
}

// Exists reports whether path is present in the namespace
func (n *Namespace) Exists(ctx context.Context, path string) (bool, error) {
	_, err := n.stat(ctx, "exists", paths.Normalize(path))
	if types.IsKind(err, types.KindNotFound) {
		return false, nil
	}
	return err == nil, err
}

// IsDirectory reports whether path is a directory. A missing path is not.
func (n *Namespace) IsDirectory(ctx context.Context, path string) (bool, error) {
	obj, err := n.stat(ctx, "is_directory", paths.Normalize(path))
	if types.IsKind(err, types.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return obj.IsDir, nil
}

// List returns the entries of dir. Mounted subtrees are served from their
// metadata cache, and mount points appear as directories in their parents.
func (n *Namespace) List(ctx context.Context, dir string, opts ListOptions) ([]types.FileEntry, error) {
	d := paths.Normalize(dir)
	obj, err := n.stat(ctx, "list", d)
	if err != nil {
		return nil, err
	}
	if !obj.IsDir {
		return nil, types.NewError(types.KindValidation, "list", d, "not a directory")
	}

	found := make(map[string]storage.Object)
	add := func(p string, obj storage.Object) {
		if p == d {
			return
		}
		if prev, ok := found[p]; ok && prev.IsDir {
			return
		}
		found[p] = obj
	}

	r := n.resolve(d)
	owned, err := n.listOwned(ctx, r, opts.Recursive)
	if err != nil {
		return nil, rebase("list", d, err)
	}
	for _, obj := range owned {
		p := r.nsPath(obj.Path)
		if n.shadowed(p, r.base) {
			continue
		}
		add(p, obj)
	}

	for _, m := range n.mountsBelow(d) {
		rel, _ := paths.Rel(m.Point(), d)
		parts := paths.Split(rel)
		if !opts.Recursive {
			child := paths.Join(d, parts[0])
			found[child] = storage.Object{Path: child, IsDir: true}
			continue
		}
		for i := range parts {
			p := paths.Join(append([]string{d}, parts[:i+1]...)...)
			found[p] = storage.Object{Path: p, IsDir: true}
		}
		mr := route{mount: m, backend: m.backend, base: m.Point(), rel: paths.Root}
		for _, obj := range m.cache.list(paths.Root, true) {
			p := mr.nsPath(obj.Path)
			if n.shadowed(p, m.Point()) {
				continue
			}
			add(p, obj)
		}
	}

	entries := make([]types.FileEntry, 0, len(found))
	for p, obj := range found {
		entry := toEntry(p, obj)
		if opts.Prefix != "" && !strings.HasPrefix(entry.Name(), opts.Prefix) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// listOwned lists what the route's own backend holds under its path. A
// directory that only exists because a mount lies below it lists as empty.
func (n *Namespace) listOwned(ctx context.Context, r route, recursive bool) ([]storage.Object, error) {
	if r.mount != nil {
		return r.mount.cache.list(r.rel, recursive), nil
	}
	objs, err := r.backend.List(ctx, r.rel, recursive)
	if types.IsKind(err, types.KindNotFound) {
		return nil, nil
	}
	return objs, err
}

// Read returns a file's content from its backend
func (n *Namespace) Read(ctx context.Context, path string) ([]byte, error) {
	p := paths.Normalize(path)
	obj, err := n.stat(ctx, "read", p)
	if err != nil {
		return nil, err
	}
	if obj.IsDir {
		return nil, types.NewError(types.KindNotFound, "read", p, "is a directory")
	}
	r := n.resolve(p)
	data, err := r.backend.Read(ctx, r.rel)
	if err != nil {
		return nil, rebase("read", p, err)
	}
	return data, nil
}

// Write stores data at path and records it in the owning mount's cache.
// The content type is sniffed from the data.
func (n *Namespace) Write(ctx context.Context, path string, data []byte) (types.FileEntry, error) {
	p := paths.Normalize(path)
	if n.holdsMount(p) {
		return types.FileEntry{}, types.NewError(types.KindValidation, "write", p, "is a directory")
	}
	r := n.resolve(p)
	if r.readOnly() {
		return types.FileEntry{}, readOnly("write", p, r)
	}
	if r.mount != nil {
		if cached, ok := r.mount.cache.get(r.rel); ok && cached.IsDir {
			return types.FileEntry{}, types.NewError(types.KindValidation, "write", p, "is a directory")
		}
	}

	obj, err := r.backend.Write(ctx, r.rel, data)
	if err != nil {
		return types.FileEntry{}, rebase("write", p, err)
	}
	obj.ContentType = mimetype.Detect(data).String()
	if r.mount != nil {
		r.mount.cache.put(obj)
	}
	n.publish(types.EventWrite, p, mountOf(r))
	return toEntry(p, obj), nil
}

// Delete removes a file. Directories need Rmdir.
func (n *Namespace) Delete(ctx context.Context, path string) error {
	p := paths.Normalize(path)
	if n.holdsMount(p) {
		return types.NewError(types.KindValidation, "delete", p, "is a mount point")
	}
	obj, err := n.stat(ctx, "delete", p)
	if err != nil {
		return err
	}
	if obj.IsDir {
		return types.NewError(types.KindValidation, "delete", p, "is a directory")
	}
	r := n.resolve(p)
	if r.readOnly() {
		return readOnly("delete", p, r)
	}
	if err := r.backend.Delete(ctx, r.rel); err != nil {
		return rebase("delete", p, err)
	}
	if r.mount != nil {
		r.mount.cache.remove(r.rel)
	}
	n.publish(types.EventDelete, p, mountOf(r))
	return nil
}

// Mkdir creates a directory. An existing directory is an error unless existOK.
func (n *Namespace) Mkdir(ctx context.Context, path string, parents, existOK bool) error {
	p := paths.Normalize(path)
	obj, err := n.stat(ctx, "mkdir", p)
	switch {
	case err == nil && obj.IsDir && existOK:
		return nil
	case err == nil:
		return storage.Exists("mkdir", p)
	case !types.IsKind(err, types.KindNotFound):
		return err
	}

	if !parents {
		parent, err := n.stat(ctx, "mkdir", paths.Parent(p))
		if err != nil {
			return err
		}
		if !parent.IsDir {
			return types.NewError(types.KindValidation, "mkdir", p, "parent is not a directory")
		}
	}

	r := n.resolve(p)
	if r.readOnly() {
		return readOnly("mkdir", p, r)
	}
	if err := r.backend.Mkdir(ctx, r.rel, true); err != nil {
		return rebase("mkdir", p, err)
	}
	if r.mount != nil {
		r.mount.cache.put(storage.Object{Path: r.rel, IsDir: true})
	}
	n.publish(types.EventMkdir, p, mountOf(r))
	return nil
}

// Rmdir removes a directory; a populated one only when recursive. Mount
// points and their ancestors cannot be removed while mounts are active.
func (n *Namespace) Rmdir(ctx context.Context, path string, recursive bool) error {
	p := paths.Normalize(path)
	if p == paths.Root || n.holdsMount(p) {
		return types.NewError(types.KindValidation, "rmdir", p, "contains an active mount")
	}
	obj, err := n.stat(ctx, "rmdir", p)
	if err != nil {
		return err
	}
	if !obj.IsDir {
		return types.NewError(types.KindValidation, "rmdir", p, "not a directory")
	}
	r := n.resolve(p)
	if r.readOnly() {
		return readOnly("rmdir", p, r)
	}
	if r.mount != nil && !recursive && len(r.mount.cache.list(r.rel, false)) > 0 {
		return storage.NotEmpty("rmdir", p)
	}
	if err := r.backend.Rmdir(ctx, r.rel, recursive); err != nil {
		return rebase("rmdir", p, err)
	}
	if r.mount != nil {
		r.mount.cache.remove(r.rel)
	}
	n.publish(types.EventRmdir, p, mountOf(r))
	return nil
}

// Rename moves a file or directory in one backend step. Paths on different
// backends, or a backend without move support, are Unsupported so callers
// can fall back to copying.
func (n *Namespace) Rename(ctx context.Context, oldPath, newPath string) error {
	src, dst := paths.Normalize(oldPath), paths.Normalize(newPath)
	if src == dst {
		return types.NewError(types.KindValidation, "rename", src, "source and destination are the same")
	}
	if n.holdsMount(src) || n.holdsMount(dst) {
		return types.NewError(types.KindValidation, "rename", src, "mount points cannot be renamed")
	}
	if paths.IsWithin(dst, src) {
		return types.NewError(types.KindValidation, "rename", src, "destination is inside the source")
	}
	if _, err := n.stat(ctx, "rename", src); err != nil {
		return err
	}
	if _, err := n.stat(ctx, "rename", dst); err == nil {
		return storage.Exists("rename", dst)
	} else if !types.IsKind(err, types.KindNotFound) {
		return err
	}

	rs, rd := n.resolve(src), n.resolve(dst)
	if rs.mount != rd.mount {
		return types.NewError(types.KindUnsupported, "rename", src, "source and destination are on different backends")
	}
	if rs.readOnly() {
		return readOnly("rename", src, rs)
	}
	mover, ok := rs.backend.(storage.Mover)
	if !ok {
		return types.Errorf(types.KindUnsupported, "rename", src, "%s does not support moves", rs.backend.Type())
	}
	if err := mover.Move(ctx, rs.rel, rd.rel); err != nil {
		return rebase("rename", src, err)
	}
	if rs.mount != nil {
		rs.mount.cache.move(rs.rel, rd.rel)
	}
	n.publish(types.EventRename, src, mountOf(rs))
	n.publish(types.EventRename, dst, mountOf(rd))
	return nil
}

func mountOf(r route) string {
	if r.mount == nil {
		return ""
	}
	return r.mount.Point()
}

func readOnly(op, p string, r route) error {
	return types.Errorf(types.KindReadOnly, op, p, "mount %s is read-only", r.mount.Point())
}
