package types

// ListOptions controls a directory listing. Nil pointers and empty strings are
// left off the wire.
type ListOptions struct {
	Recursive  *bool
	Details    *bool
	Prefix     string
	ShowParsed *bool
}

// MkdirOptions controls directory creation. Parents defaults to true.
type MkdirOptions struct {
	Parents *bool
	ExistOK bool
}

// GrepOptions controls a content search
type GrepOptions struct {
	Path        string
	FilePattern string
	IgnoreCase  bool
	MaxResults  int
}

// SyncOptions controls a mount reconciliation. Recursive defaults to true.
type SyncOptions struct {
	Recursive *bool
	DryRun    bool
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}

// BoolOr dereferences p, or returns def when p is nil
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
