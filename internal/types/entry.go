package types

import (
	"time"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
)

// FileEntry represents one filesystem object in the namespace
type FileEntry struct {
	Path        string     `json:"path"`
	IsDirectory bool       `json:"is_directory"`
	Size        *int64     `json:"size,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	ETag        string     `json:"etag,omitempty"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	AccessedAt  *time.Time `json:"accessed_at,omitempty"`

	// Provenance, set only on entries whose path is an active mount point
	MountPoint  string `json:"mount_point,omitempty"`
	BackendType string `json:"backend_type,omitempty"`
}

// NewFileEntry builds an entry with a normalized path. The directory flag is
// fixed here and carried unchanged through every later copy.
func NewFileEntry(path string, isDirectory bool) FileEntry {
	return FileEntry{Path: paths.Normalize(path), IsDirectory: isDirectory}
}

// Name is the final path component; empty for the root.
func (e FileEntry) Name() string {
	return paths.Base(e.Path)
}

// HasProvenance reports whether enrichment attached a mount to the entry
func (e FileEntry) HasProvenance() bool {
	return e.MountPoint != ""
}

// WithProvenance returns a copy annotated with the mount's identity.
func (e FileEntry) WithProvenance(m Mount) FileEntry {
	out := e
	out.MountPoint = paths.Normalize(m.MountPoint)
	out.BackendType = m.BackendType
	return out
}

// Merge returns a copy with every field present in update applied on top of e.
// Path and IsDirectory always come from e.
func (e FileEntry) Merge(update FileEntry) FileEntry {
	out := e
	if update.Size != nil {
		size := *update.Size
		out.Size = &size
	}
	if update.ContentType != "" {
		out.ContentType = update.ContentType
	}
	if update.ETag != "" {
		out.ETag = update.ETag
	}
	if update.ModifiedAt != nil {
		out.ModifiedAt = update.ModifiedAt
	}
	if update.CreatedAt != nil {
		out.CreatedAt = update.CreatedAt
	}
	if update.AccessedAt != nil {
		out.AccessedAt = update.AccessedAt
	}
	if update.MountPoint != "" {
		out.MountPoint = update.MountPoint
		out.BackendType = update.BackendType
	}
	return out
}

// Mount is an active binding of a mount point to a backend
type Mount struct {
	MountPoint  string `json:"mount_point"`
	BackendType string `json:"backend_type"`
	Priority    int    `json:"priority"`
	ReadOnly    bool   `json:"readonly"`
}

// Point implements paths.Pointed
func (m Mount) Point() string { return m.MountPoint }

// SavedMount is a durable mount configuration, independent of activation
type SavedMount struct {
	MountPoint    string                 `json:"mount_point"`
	BackendType   string                 `json:"backend_type"`
	BackendConfig map[string]interface{} `json:"backend_config,omitempty"`
	Priority      int                    `json:"priority"`
	ReadOnly      bool                   `json:"readonly"`
	Description   string                 `json:"description,omitempty"`
	OwnerUserID   string                 `json:"owner_user_id,omitempty"`
	TenantID      string                 `json:"tenant_id,omitempty"`
	CreatedAt     *time.Time             `json:"created_at,omitempty"`
	UpdatedAt     *time.Time             `json:"updated_at,omitempty"`
}

// Point implements paths.Pointed
func (s SavedMount) Point() string { return s.MountPoint }

// Active projects the saved configuration onto the runtime mount it activates
func (s SavedMount) Active() Mount {
	return Mount{
		MountPoint:  paths.Normalize(s.MountPoint),
		BackendType: s.BackendType,
		Priority:    s.Priority,
		ReadOnly:    s.ReadOnly,
	}
}

// SyncResult holds best-effort reconciliation counts for one sync call
type SyncResult struct {
	FilesScanned int `json:"files_scanned"`
	FilesCreated int `json:"files_created"`
	FilesUpdated int `json:"files_updated"`
	FilesDeleted int `json:"files_deleted"`
	Errors       int `json:"errors"`
}

// Changed is the number of objects whose metadata a sync created, updated or deleted.
func (r SyncResult) Changed() int {
	return r.FilesCreated + r.FilesUpdated + r.FilesDeleted
}

// GrepMatch is one matching line from a content search
type GrepMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// Event announces a namespace change so caches can be invalidated
type Event struct {
	Op         string    `json:"op"`
	Path       string    `json:"path"`
	MountPoint string    `json:"mount_point,omitempty"`
	Time       time.Time `json:"time"`
}

// Event operations
const (
	EventWrite   = "write"
	EventDelete  = "delete"
	EventMkdir   = "mkdir"
	EventRmdir   = "rmdir"
	EventRename  = "rename"
	EventMount   = "mount"
	EventUnmount = "unmount"
	EventSync    = "sync"
)

// BatchResult reports a multi-item operation that continues past failures
type BatchResult struct {
	Succeeded []string      `json:"succeeded"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Failed reports whether any item failed
func (b BatchResult) Failed() bool {
	return len(b.Failures) > 0
}
