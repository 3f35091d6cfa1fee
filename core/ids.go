package core

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUIDGenerator issues short random identifiers derived from a v4 UUID.
// Nine hex characters give well over 60 billion values, which is far beyond
// collision concern at single-venue cardinality.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() string {
	id := uuid.New().String()
	// Strip the hyphens so the token is uniformly alphanumeric.
	return id[:8] + id[9:10]
}

// SequenceGenerator issues deterministic incrementing identifiers for tests.
type SequenceGenerator struct {
	prefix string
	next   atomic.Uint64
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s%d", g.prefix, g.next.Add(1))
}

var (
	_ IDGenerator = (*UUIDGenerator)(nil)
	_ IDGenerator = (*SequenceGenerator)(nil)
)
