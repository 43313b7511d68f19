// Package id generates identifiers for namespace objects.
//
// Activation tokens and request ids are prefixed ULIDs, so they sort by
// creation time and read clearly in logs (act_01J..., req_01J...). Rename
// journal entries and stream subscribers use random UUIDs since nothing orders
// them.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ActivationID identifies one activation of a saved mount
type ActivationID string

// RequestID identifies an RPC request end to end
type RequestID string

// JournalID identifies a composed rename in the rename journal
type JournalID string

// ClientID identifies an invalidation stream subscriber
type ClientID string

const (
	ActivationPrefix = "act"
	RequestPrefix    = "req"
)

// Generator generates monotonic ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// IDs minted within the same millisecond still sort in generation order.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: ulid.Monotonic(entropy, 0)}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

func NewActivationID() ActivationID {
	return ActivationID(Default().GenerateWithPrefix(ActivationPrefix))
}

func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func NewJournalID() JournalID {
	return JournalID(uuid.NewString())
}

func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

func (id ActivationID) String() string { return string(id) }
func (id RequestID) String() string    { return string(id) }
func (id JournalID) String() string    { return string(id) }
func (id ClientID) String() string     { return string(id) }

// IsValid reports whether s is a ULID, with or without a prefix
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse parses a ULID, stripping any prefix
func Parse(s string) (ulid.ULID, error) {
	if idx := strings.LastIndexByte(s, '_'); idx >= 0 {
		s = s[idx+1:]
	}
	return ulid.Parse(s)
}

// Timestamp extracts the creation time of a ULID
func Timestamp(s string) (time.Time, error) {
	parsed, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
