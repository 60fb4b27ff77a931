// Package shared holds the value types every graph package depends on:
// identifiers, the event vocabulary and the domain error sentinels.
package shared

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"activegraph/internal/errors"
)

// Kind tags an identifier with the entity family it names.
type Kind string

const (
	KindNode       Kind = "node"
	KindConnection Kind = "connection"
	KindGraph      Kind = "graph"
)

// ID identifies a graph, node or connection. It is a comparable value type so it
// can key maps directly; the zero value means "no identifier".
type ID struct {
	kind  Kind
	clock int64
	seq   uint64
	salt  string
}

// Kind returns the entity family.
func (id ID) Kind() Kind { return id.kind }

// Seq returns the allocation sequence number.
func (id ID) Seq() uint64 { return id.seq }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// String renders the identifier as kind/nanos.seq/salt.
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s/%d.%d/%s", id.kind, id.clock, id.seq, id.salt)
}

// MarshalText lets identifiers appear as JSON strings and map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID parses the string form of an identifier.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return ID{}, invalidID(s, "expected kind/nanos.seq/salt")
	}

	stamp := strings.SplitN(parts[1], ".", 2)
	if len(stamp) != 2 {
		return ID{}, invalidID(s, "missing sequence")
	}
	clock, err := strconv.ParseInt(stamp[0], 10, 64)
	if err != nil {
		return ID{}, invalidID(s, "bad clock sample")
	}
	seq, err := strconv.ParseUint(stamp[1], 10, 64)
	if err != nil {
		return ID{}, invalidID(s, "bad sequence")
	}

	return ID{kind: Kind(parts[0]), clock: clock, seq: seq, salt: parts[2]}, nil
}

func invalidID(s, details string) error {
	return errors.Validation(errors.CodeInvalidIdentifier.String(), "invalid identifier").
		WithEntity(s).
		WithDetails(details).
		Build()
}

// Allocator issues identifiers. The sequence is shared across kinds and
// strictly increasing, so two identifiers from one allocator never compare
// equal. The clock sample and salt keep identifiers from different
// allocators apart.
type Allocator struct {
	seq   atomic.Uint64
	clock func() time.Time
}

// NewAllocator creates an allocator reading the wall clock. The zero
// Allocator is also ready to use.
func NewAllocator() *Allocator {
	return &Allocator{clock: time.Now}
}

// Allocate returns a fresh identifier of the given kind.
func (a *Allocator) Allocate(kind Kind) ID {
	now := time.Now
	if a.clock != nil {
		now = a.clock
	}
	u := uuid.New()
	return ID{
		kind:  kind,
		clock: now().UnixNano(),
		seq:   a.seq.Add(1),
		salt:  fmt.Sprintf("%02x%02x", u[0], u[1]),
	}
}

var defaultAllocator = NewAllocator()

// NewID allocates from the process-wide allocator.
func NewID(kind Kind) ID {
	return defaultAllocator.Allocate(kind)
}
