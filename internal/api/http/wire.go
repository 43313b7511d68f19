package http

import (
	"time"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

// wireEntry is a listing entry as clients decode it
type wireEntry struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	IsDirectory bool       `json:"is_directory"`
	Size        *int64     `json:"size,omitempty"`
	MimeType    string     `json:"mime_type,omitempty"`
	ETag        string     `json:"etag,omitempty"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	AccessedAt  *time.Time `json:"accessed_at,omitempty"`
}

func toWire(e types.FileEntry) wireEntry {
	return wireEntry{
		Path:        e.Path,
		Name:        e.Name(),
		IsDirectory: e.IsDirectory,
		Size:        e.Size,
		MimeType:    e.ContentType,
		ETag:        e.ETag,
		ModifiedAt:  e.ModifiedAt,
		CreatedAt:   e.CreatedAt,
		AccessedAt:  e.AccessedAt,
	}
}

func wireEntries(entries []types.FileEntry) []wireEntry {
	out := make([]wireEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWire(e))
	}
	return out
}

// wirePaths is the listing without details: bare paths, directories marked
// with a trailing separator.
func wirePaths(entries []types.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDirectory {
			out = append(out, e.Path+"/")
			continue
		}
		out = append(out, e.Path)
	}
	return out
}
