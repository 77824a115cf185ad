package timeline

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces element identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// CounterGenerator issues sequential ids such as "el-1", "el-2".
// It gives tests deterministic identifiers.
type CounterGenerator struct {
	Prefix string
	n      atomic.Uint64
}

func (g *CounterGenerator) NewID() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "el"
	}
	return fmt.Sprintf("%s-%d", prefix, g.n.Add(1))
}
