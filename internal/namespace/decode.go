package namespace

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

var (
	dirFlagKeys     = []string{"is_directory", "isDirectory"}
	contentTypeKeys = []string{"mime_type", "type"}
	etagKeys        = []string{"etag", "content_hash"}
	modifiedKeys    = []string{"modified_at", "modifiedAt", "mtime"}
	createdKeys     = []string{"created_at", "createdAt", "ctime"}
	accessedKeys    = []string{"accessed_at", "accessedAt", "atime"}
)

// listResult accepts {"files": [...]} or a bare array.
type listResult struct {
	Files []json.RawMessage
}

func (l *listResult) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return rpc.Unmarshal(data, &l.Files)
	}
	var obj struct {
		Files []json.RawMessage `json:"files"`
	}
	if err := rpc.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Files = obj.Files
	return nil
}

// decodeEntries converts raw listing entries relative to dir.
func decodeEntries(dir string, raw []json.RawMessage) ([]types.FileEntry, error) {
	entries := make([]types.FileEntry, 0, len(raw))
	for i, r := range raw {
		entry, err := decodeEntry(dir, r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// decodeEntry accepts a bare path string or an object. The directory flag is
// settled here, once.
func decodeEntry(dir string, raw json.RawMessage) (types.FileEntry, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var p string
		if err := rpc.Unmarshal(raw, &p); err != nil {
			return types.FileEntry{}, err
		}
		return types.NewFileEntry(absolute(dir, p), strings.HasSuffix(p, "/")), nil
	}

	var obj map[string]interface{}
	if err := rpc.Unmarshal(raw, &obj); err != nil {
		return types.FileEntry{}, err
	}

	rawPath, _ := unwrap(obj["path"]).(string)
	if rawPath == "" {
		rawPath, _ = unwrap(obj["name"]).(string)
	}
	if rawPath == "" {
		return types.FileEntry{}, fmt.Errorf("entry has no path")
	}

	size, hasSize := int64Field(obj, "size")
	etag := stringField(obj, etagKeys...)
	contentType := stringField(obj, contentTypeKeys...)

	entry := types.NewFileEntry(absolute(dir, rawPath), deriveIsDirectory(obj, rawPath, hasSize, etag, contentType))
	if hasSize && !entry.IsDirectory {
		entry.Size = &size
	}
	entry.ETag = etag
	entry.ContentType = contentType
	entry.ModifiedAt = timeField(obj, modifiedKeys...)
	entry.CreatedAt = timeField(obj, createdKeys...)
	entry.AccessedAt = timeField(obj, accessedKeys...)
	return entry, nil
}

// deriveIsDirectory applies, in order: an explicit flag; no size, no etag and
// no content type; a trailing separator on the path.
func deriveIsDirectory(obj map[string]interface{}, rawPath string, hasSize bool, etag, contentType string) bool {
	for _, key := range dirFlagKeys {
		if flag, ok := unwrap(obj[key]).(bool); ok {
			return flag
		}
	}
	if !hasSize && etag == "" && contentType == "" {
		return true
	}
	return strings.HasSuffix(rawPath, "/")
}

func absolute(dir, p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return paths.Join(dir, p)
}

// unwrap strips a {"data": v} envelope.
func unwrap(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if inner, ok := m["data"]; ok {
			return inner
		}
	}
	return v
}

func stringField(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := unwrap(obj[key]).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func int64Field(obj map[string]interface{}, key string) (int64, bool) {
	switch n := unwrap(obj[key]).(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		v, err := n.Int64()
		return v, err == nil
	}
	return 0, false
}

func timeField(obj map[string]interface{}, keys ...string) *time.Time {
	for _, key := range keys {
		if t, ok := parseInstant(unwrap(obj[key])); ok {
			return &t
		}
	}
	return nil
}

// parseInstant reads RFC 3339 strings and unix seconds or milliseconds.
func parseInstant(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t.UTC(), true
			}
		}
	case float64:
		if val > 1e12 {
			return time.UnixMilli(int64(val)).UTC(), true
		}
		sec, frac := math.Modf(val)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
	return time.Time{}, false
}
