package tokenizer

import (
	"time"
	"unsafe"

	"github.com/spicery/dfalex/pkg/automaton"
	"github.com/spicery/dfalex/pkg/token"
)

// Stats is a snapshot of a context's counters.
type Stats struct {
	CharsProcessed   int           `json:"chars_processed"`
	TokensGenerated  int           `json:"tokens_generated"`
	TokensDropped    int           `json:"tokens_dropped"`
	PatternsCompiled int           `json:"patterns_compiled"`
	StatesCreated    int           `json:"states_created"`
	MemoryAllocated  int           `json:"memory_allocated"`
	PeakMemory       int           `json:"peak_memory"`
	Elapsed          time.Duration `json:"elapsed"`
	ErrorCount       int           `json:"error_count"`
	Calls            int           `json:"calls"`
}

var (
	stateBytes = int(unsafe.Sizeof(automaton.State{}))
	// triplet plus its position and length entries
	tokenBytes = int(unsafe.Sizeof(token.Triplet(0)) + unsafe.Sizeof(token.Position{}) + unsafe.Sizeof(uint16(0)))
	ruleBytes  = int(unsafe.Sizeof(rule{}))
)

// memory estimates the bytes held by the context's buffers and automata.
func (c *Context) memory() int {
	total := cap(c.tokens)*tokenBytes + cap(c.rules)*ruleBytes
	for _, r := range c.rules {
		total += (r.comp.StateCount() + 1) * stateBytes
	}
	return total
}

func (c *Context) trackMemory() {
	c.stats.MemoryAllocated = c.memory()
	if c.stats.MemoryAllocated > c.stats.PeakMemory {
		c.stats.PeakMemory = c.stats.MemoryAllocated
	}
}
