package engine

import (
	"sync"

	"github.com/google/uuid"
)

// QueryIDGenerator generates unique query IDs for correlating outcomes
// with logs and the audit history. Implemented by UUIDv7Generator
// (production) and FixedGenerator (tests).
type QueryIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 query IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort
// by issue time. That keeps the audit history naturally ordered and
// makes interleaved logs easy to follow.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined query IDs for testing.
//
// This enables deterministic outcomes and golden payload comparison:
// tests provide a known sequence of IDs and assert exact output.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics when all IDs have been consumed. Fail-fast: the test ran more
// queries than it declared IDs for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
