package paths

import (
	"fmt"
	"strings"
)

// Root is the namespace root.
const Root = "/"

// Well-known namespace roots.
const (
	Mounts    = "/mnt"
	Workspace = "/workspace"
	Memory    = "/memory"
	Skills    = "/skills"
	Tenants   = "/tenant"
)

// Pointed is implemented by anything bound to a mount point.
type Pointed interface {
	Point() string
}

// Normalize collapses repeated separators, forces a leading separator and strips
// a trailing one unless the result is the root. The empty string is the root.
// Dot components are kept verbatim.
func Normalize(path string) string {
	if path == "" {
		return Root
	}

	var b strings.Builder
	b.Grow(len(path) + 1)
	b.WriteByte('/')
	prevSlash := true
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
			b.WriteByte(c)
			continue
		}
		prevSlash = false
		b.WriteByte(c)
	}

	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = out[:len(out)-1]
	}
	return out
}

// Parent returns everything before the last separator. The root is its own parent.
func Parent(path string) string {
	p := Normalize(path)
	if p == Root {
		return Root
	}
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return Root
	}
	return p[:idx]
}

// Base returns the final component, or "" for the root.
func Base(path string) string {
	p := Normalize(path)
	if p == Root {
		return ""
	}
	return p[strings.LastIndexByte(p, '/')+1:]
}

// BaseOr returns Base(path), or fallback when path is the root.
func BaseOr(path, fallback string) string {
	if b := Base(path); b != "" {
		return b
	}
	return fallback
}

// Join joins elements with a separator and normalizes the result.
func Join(elem ...string) string {
	return Normalize(strings.Join(elem, "/"))
}

// IsRoot reports whether path normalizes to the root.
func IsRoot(path string) bool {
	return Normalize(path) == Root
}

// IsWithin reports whether path equals dir or lies below it.
func IsWithin(path, dir string) bool {
	p, d := Normalize(path), Normalize(dir)
	if d == Root || p == d {
		return true
	}
	return strings.HasPrefix(p, d+"/")
}

// Rel returns path relative to dir without a leading separator ("" when equal).
// It returns an error when path is outside dir.
func Rel(path, dir string) (string, error) {
	p, d := Normalize(path), Normalize(dir)
	if !IsWithin(p, d) {
		return "", fmt.Errorf("path %s is outside %s", p, d)
	}
	if p == d {
		return "", nil
	}
	if d == Root {
		return p[1:], nil
	}
	return p[len(d)+1:], nil
}

// Split returns the normalized components of path. The root has none.
func Split(path string) []string {
	p := Normalize(path)
	if p == Root {
		return nil
	}
	return strings.Split(p[1:], "/")
}

// FindMountForPath returns the mount whose mount point is textually identical to
// the normalized path, or nil. Paths strictly inside a mount never match.
func FindMountForPath[M Pointed](path string, mounts []M) *M {
	p := Normalize(path)
	for i := range mounts {
		if Normalize(mounts[i].Point()) == p {
			return &mounts[i]
		}
	}
	return nil
}

// ResolveMount returns the mount with the longest mount point that contains path,
// or nil if no mount does.
func ResolveMount[M Pointed](path string, mounts []M) *M {
	p := Normalize(path)
	best := -1
	bestLen := -1
	for i := range mounts {
		mp := Normalize(mounts[i].Point())
		if !IsWithin(p, mp) {
			continue
		}
		if len(mp) > bestLen {
			best, bestLen = i, len(mp)
		}
	}
	if best < 0 {
		return nil
	}
	return &mounts[best]
}

// TenantRoot returns the namespace root scoped to a tenant.
func TenantRoot(tenantID string) string {
	return Join(Tenants, tenantID)
}

// UserRoot returns the namespace root scoped to a user within a tenant.
func UserRoot(tenantID, userID string) string {
	return Join(Tenants, tenantID, "user", userID)
}

// ValidateSegment checks that s can be used as a single path component.
func ValidateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("segment cannot be empty")
	}
	if strings.ContainsRune(s, '/') {
		return fmt.Errorf("segment %q cannot contain a separator", s)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("segment %q is reserved", s)
	}
	return nil
}
