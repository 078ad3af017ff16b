package engine

import (
	"sync"

	"github.com/google/uuid"
)

// UUIDGenerator generates time-sortable UUIDv7 game tokens.
//
// The embedded timestamp makes tokens sort by creation time, which keeps
// trace databases browsable run by run.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDGenerator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails, which does not happen in practice.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for tests, so golden
// traces compare byte-for-byte across runs.
//
// Thread-safety: guarded by an internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
// Panics when all tokens are consumed; a test asking for more tokens
// than it declared is misconfigured and should fail fast.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
