// Package id mints ULID identifiers for runs and order signals.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints ULID strings. The entropy source is monotonic, so IDs
// minted within the same millisecond still sort in mint order. Safe for
// concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator returns a generator seeded from crypto/rand.
func NewGenerator() *Generator {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:     time.Now,
	}
}

// New mints one ULID.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		// Only reachable when the clock precedes the ULID epoch or the
		// entropy source fails.
		panic(err)
	}
	return id.String()
}

var global = NewGenerator()

// New mints a ULID from the package generator. Run IDs are ULIDs so a
// journal sorted by ID is also sorted by creation time.
func New() string { return global.New() }
