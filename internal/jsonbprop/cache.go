package jsonbprop

import (
	"sync"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// EventCache deduplicates property-set serialization within one block:
// events that share the same *model.PropertySet (pointer identity, not
// content equality — see model.PropertySet) are serialized exactly once.
// This is the "dictionary builder keyed by pointer identity" tier of
// §4.2; it is not safe for concurrent use across goroutines decoding
// different blocks in parallel — each block gets its own EventCache.
type EventCache struct {
	entries map[*model.PropertySet][]byte
}

// NewEventCache returns an empty per-block property cache.
func NewEventCache() *EventCache {
	return &EventCache{entries: make(map[*model.PropertySet][]byte)}
}

// Encode returns the cached binary encoding for p, computing and
// caching it on first use. A nil p is encoded (and cached under the nil
// key) exactly like any other property set.
func (c *EventCache) Encode(p *model.PropertySet) []byte {
	if b, ok := c.entries[p]; ok {
		return b
	}
	b := Encode(p)
	c.entries[p] = b
	return b
}

// Len reports the number of distinct property sets seen so far, useful
// for the decoder to log cache effectiveness.
func (c *EventCache) Len() int { return len(c.entries) }

// ProcessCache pre-serializes process properties once per process for
// the lifetime of the BlockProcessor that owns it (§4.2 tier 1). It is
// guarded by a mutex, so it is safe for concurrent use.
type ProcessCache struct {
	mu      sync.Mutex
	entries map[string][]byte // keyed by process id
}

// NewProcessCache returns an empty process-property cache.
func NewProcessCache() *ProcessCache {
	return &ProcessCache{entries: make(map[string][]byte)}
}

// Encode returns the cached binary encoding of proc's properties,
// computing it on first use for this process id.
func (c *ProcessCache) Encode(proc *model.Process) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.entries[proc.ProcessID]; ok {
		return b
	}
	b := Encode(proc.Properties)
	c.entries[proc.ProcessID] = b
	return b
}
