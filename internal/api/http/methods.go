package http

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/fedfs/internal/federation"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

type pathParams struct {
	Path string `json:"path"`
}

type listParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Details   *bool  `json:"details"`
	Prefix    string `json:"prefix"`
	// accepted for compatibility; entries carry no parsed view
	ShowParsed bool `json:"show_parsed"`
}

type writeParams struct {
	Path    string   `json:"path"`
	Content rpc.Blob `json:"content"`
}

type mkdirParams struct {
	Path    string `json:"path"`
	Parents *bool  `json:"parents"`
	ExistOK bool   `json:"exist_ok"`
}

type rmdirParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type renameParams struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

type globParams struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

type grepParams struct {
	Pattern     string `json:"pattern"`
	Path        string `json:"path"`
	FilePattern string `json:"file_pattern"`
	IgnoreCase  bool   `json:"ignore_case"`
	MaxResults  int    `json:"max_results"`
}

type mountParams struct {
	MountPoint string `json:"mount_point"`
}

type syncParams struct {
	MountPoint string `json:"mount_point"`
	Recursive  *bool  `json:"recursive"`
	DryRun     bool   `json:"dry_run"`
}

type saveParams struct {
	Mount *types.SavedMount `json:"mount"`
}

// decode reads params into v. Absent params decode to the zero value.
func decode(op string, raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := rpc.Unmarshal(raw, v); err != nil {
		return types.Errorf(types.KindValidation, op, "", "invalid params: %v", err)
	}
	return nil
}

func required(op, field, value string) error {
	if value == "" {
		return types.Errorf(types.KindValidation, op, "", "%s is required", field)
	}
	return nil
}

func (h *Handlers) register() map[string]method {
	m := map[string]method{
		"list":         h.list,
		"stat":         h.stat,
		"read":         h.read,
		"write":        h.write,
		"delete":       h.delete,
		"exists":       h.exists,
		"is_directory": h.isDirectory,
		"mkdir":        h.mkdir,
		"rmdir":        h.rmdir,
		"rename":       h.rename,
		"glob":         h.glob,
		"grep":         h.grep,

		"list_mounts":        h.listMounts,
		"list_saved_mounts":  h.listSaved,
		"save_mount":         h.saveMount,
		"delete_saved_mount": h.deleteSaved,
		"load_mount":         h.loadMount,
		"remove_mount":       h.removeMount,
		"sync_mount":         h.syncMount,
	}
	// older clients call mounts connectors
	m["list_connectors"] = h.listMounts
	m["list_saved_connectors"] = h.listSaved
	m["load_connector"] = h.loadMount
	m["sync_connector"] = h.syncMount
	m["delete_connector"] = h.deleteSaved
	m["remove_connector"] = h.removeMount
	return m
}

func (h *Handlers) list(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p listParams
	if err := decode("list", raw, &p); err != nil {
		return nil, err
	}
	entries, err := h.ns.List(ctx, p.Path, federation.ListOptions{Recursive: p.Recursive, Prefix: p.Prefix})
	if err != nil {
		return nil, err
	}
	if p.Details != nil && !*p.Details {
		return gin.H{"files": wirePaths(entries)}, nil
	}
	return gin.H{"files": wireEntries(entries)}, nil
}

func (h *Handlers) stat(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p pathParams
	if err := decode("stat", raw, &p); err != nil {
		return nil, err
	}
	entry, err := h.ns.Stat(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	return toWire(entry), nil
}

func (h *Handlers) read(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p pathParams
	if err := decode("read", raw, &p); err != nil {
		return nil, err
	}
	if err := required("read", "path", p.Path); err != nil {
		return nil, err
	}
	data, err := h.ns.Read(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	// reads come back as a bare base64 string; only writes carry the tag
	return data, nil
}

func (h *Handlers) write(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p writeParams
	if err := decode("write", raw, &p); err != nil {
		return nil, err
	}
	if err := required("write", "path", p.Path); err != nil {
		return nil, err
	}
	entry, err := h.ns.Write(ctx, p.Path, p.Content)
	if err != nil {
		return nil, err
	}
	return toWire(entry), nil
}

func (h *Handlers) delete(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p pathParams
	if err := decode("delete", raw, &p); err != nil {
		return nil, err
	}
	if err := required("delete", "path", p.Path); err != nil {
		return nil, err
	}
	return nil, h.ns.Delete(ctx, p.Path)
}

func (h *Handlers) exists(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p pathParams
	if err := decode("exists", raw, &p); err != nil {
		return nil, err
	}
	ok, err := h.ns.Exists(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	return gin.H{"exists": ok}, nil
}

func (h *Handlers) isDirectory(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p pathParams
	if err := decode("is_directory", raw, &p); err != nil {
		return nil, err
	}
	ok, err := h.ns.IsDirectory(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	return gin.H{"is_directory": ok}, nil
}

func (h *Handlers) mkdir(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p mkdirParams
	if err := decode("mkdir", raw, &p); err != nil {
		return nil, err
	}
	if err := required("mkdir", "path", p.Path); err != nil {
		return nil, err
	}
	return nil, h.ns.Mkdir(ctx, p.Path, types.BoolOr(p.Parents, true), p.ExistOK)
}

func (h *Handlers) rmdir(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p rmdirParams
	if err := decode("rmdir", raw, &p); err != nil {
		return nil, err
	}
	if err := required("rmdir", "path", p.Path); err != nil {
		return nil, err
	}
	return nil, h.ns.Rmdir(ctx, p.Path, p.Recursive)
}

func (h *Handlers) rename(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p renameParams
	if err := decode("rename", raw, &p); err != nil {
		return nil, err
	}
	if err := required("rename", "old_path", p.OldPath); err != nil {
		return nil, err
	}
	if err := required("rename", "new_path", p.NewPath); err != nil {
		return nil, err
	}
	return nil, h.ns.Rename(ctx, p.OldPath, p.NewPath)
}

func (h *Handlers) glob(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p globParams
	if err := decode("glob", raw, &p); err != nil {
		return nil, err
	}
	matches, err := h.ns.Glob(ctx, p.Pattern, p.Path)
	if err != nil {
		return nil, err
	}
	return gin.H{"matches": matches}, nil
}

func (h *Handlers) grep(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p grepParams
	if err := decode("grep", raw, &p); err != nil {
		return nil, err
	}
	if err := required("grep", "pattern", p.Pattern); err != nil {
		return nil, err
	}
	results, err := h.ns.Grep(ctx, p.Pattern, federation.GrepOptions{
		Path:        p.Path,
		FilePattern: p.FilePattern,
		IgnoreCase:  p.IgnoreCase,
		MaxResults:  p.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"results": results}, nil
}

func (h *Handlers) listMounts(context.Context, json.RawMessage) (interface{}, error) {
	return h.ns.ListMounts(), nil
}

func (h *Handlers) listSaved(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return h.ns.ListSaved(ctx)
}

func (h *Handlers) saveMount(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p saveParams
	if err := decode("save_mount", raw, &p); err != nil {
		return nil, err
	}
	if p.Mount == nil {
		return nil, types.NewError(types.KindValidation, "save_mount", "", "mount is required")
	}
	if err := required("save_mount", "mount_point", p.Mount.MountPoint); err != nil {
		return nil, err
	}
	return h.ns.SaveMount(ctx, *p.Mount)
}

func (h *Handlers) deleteSaved(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p mountParams
	if err := decode("delete_saved_mount", raw, &p); err != nil {
		return nil, err
	}
	if err := required("delete_saved_mount", "mount_point", p.MountPoint); err != nil {
		return nil, err
	}
	return h.ns.DeleteSaved(ctx, p.MountPoint)
}

func (h *Handlers) loadMount(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p mountParams
	if err := decode("load_mount", raw, &p); err != nil {
		return nil, err
	}
	if err := required("load_mount", "mount_point", p.MountPoint); err != nil {
		return nil, err
	}
	activation, err := h.ns.LoadMount(ctx, p.MountPoint)
	if err != nil {
		return nil, err
	}
	return gin.H{"activation_id": activation.String()}, nil
}

func (h *Handlers) removeMount(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p mountParams
	if err := decode("remove_mount", raw, &p); err != nil {
		return nil, err
	}
	if err := required("remove_mount", "mount_point", p.MountPoint); err != nil {
		return nil, err
	}
	return nil, h.ns.RemoveMount(ctx, p.MountPoint)
}

func (h *Handlers) syncMount(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p syncParams
	if err := decode("sync_mount", raw, &p); err != nil {
		return nil, err
	}
	if err := required("sync_mount", "mount_point", p.MountPoint); err != nil {
		return nil, err
	}
	return h.ns.Sync(ctx, p.MountPoint, types.BoolOr(p.Recursive, true), p.DryRun)
}
