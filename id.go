package barrister

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator creates request identifiers. IDs must be unique for the
// lifetime of a single call or batch; they do not need to be unpredictable.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function into an `IDGenerator`, which is handy
// for deterministic IDs in tests.
type IDGeneratorFunc func() string

// NewID calls f().
func (f IDGeneratorFunc) NewID() string {
	return f()
}

// UUIDGenerator creates random (v4) UUIDs. This is the default.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// ULIDGenerator creates lexicographically sortable ULIDs using monotonic
// entropy, so IDs issued within the same millisecond still sort in call
// order. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a ULID generator seeded from the current time.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// NewID returns the next ULID string.
func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
