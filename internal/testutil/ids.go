package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates predictable capture ids for tests.
//
// Ids are UUID-shaped and numbered from 1 in call order, so the same test
// run always stores captures under the same ids:
//
//	gen := NewFixedIDGenerator("")
//	gen.Generate() // "00000000-0000-7000-8000-000000000001"
//	gen.Generate() // "00000000-0000-7000-8000-000000000002"
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix yields the
// UUID-shaped default.
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "00000000-0000-7000-8000-"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements store.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%012d", g.prefix, g.n)
}
