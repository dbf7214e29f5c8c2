package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs hands out predictable IDs for tests.
//
// Engine IDs are UUIDv7 in production, which makes logs and golden output
// vary between runs. SequenceIDs returns "<prefix>-0001", "<prefix>-0002",
// and so on instead. It is safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs returns a generator whose IDs start with prefix. An empty
// prefix becomes "test".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "test"
	}
	return &SequenceIDs{prefix: prefix}
}

// NewID returns the next ID.
func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset starts the sequence over.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
