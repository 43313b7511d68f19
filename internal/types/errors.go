package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a namespace failure
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindNotFound
	KindBackend
	KindValidation
	KindPartialFailure
	KindUnsupported
	KindReadOnly
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindAuthentication: "authentication",
	KindNotFound:       "not_found",
	KindBackend:        "backend",
	KindValidation:     "validation",
	KindPartialFailure: "partial_failure",
	KindUnsupported:    "unsupported",
	KindReadOnly:       "read_only",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	*k = KindUnknown
	return nil
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrBackend        = &Error{Kind: KindBackend}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrPartialFailure = &Error{Kind: KindPartialFailure}
	ErrUnsupported    = &Error{Kind: KindUnsupported}
	ErrReadOnly       = &Error{Kind: KindReadOnly}
)

// ItemFailure is the failure of a single item within a batch or sync
type ItemFailure struct {
	Path    string `json:"path"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Error is the structured error returned by every namespace operation.
// Callers switch on Kind; Message is the backend's text, passed through as is.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Message string
	Items   []ItemFailure
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteByte(' ')
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteByte(' ')
	}
	b.WriteString(e.Kind.String())
	switch {
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Items) > 0 {
		fmt.Fprintf(&b, " (%d failed)", len(e.Items))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Path == "" && t.Message == "" && t.Err == nil && t.Items == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// NewError creates an error of the given kind
func NewError(kind Kind, op, path, message string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Message: message}
}

// Errorf creates an error of the given kind with a formatted message
func Errorf(kind Kind, op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to err. An err that already carries a kind keeps it.
func Wrap(kind Kind, op, path string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Kind != KindUnknown {
		kind = existing.Kind
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// PartialFailure reports an aggregate that completed with per-item failures
func PartialFailure(op string, items []ItemFailure) *Error {
	return &Error{
		Kind:    KindPartialFailure,
		Op:      op,
		Message: fmt.Sprintf("%d item(s) failed", len(items)),
		Items:   items,
	}
}

// KindOf returns the kind carried by err, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Failure converts err into a batch item failure for path
func Failure(path string, err error) ItemFailure {
	item := ItemFailure{Path: path, Kind: KindOf(err)}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		item.Message = e.Message
	} else if err != nil {
		item.Message = err.Error()
	}
	return item
}
