package model

import "time"

// Property is one entry of a property bag as it arrives at the ingestion
// boundary: an ordered key/value list, never a map (order matters for
// deterministic re-serialization, see PropertySet).
type Property struct {
	Key   string
	Value string
}

// PropertySet is a property bag shared by reference across the events
// that carry it. Record builders (internal/jsonbprop) dedupe
// serialization by the pointer identity of a PropertySet, not its
// contents — two property sets with identical contents but distinct
// identity are serialized twice, matching the "per logical property-set"
// rule in the design (a new PropertySet means a new logical assignment
// even if incidentally equal).
type PropertySet struct {
	Items []Property
}

// Get returns the first value for key, or "" if absent.
func (p *PropertySet) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, it := range p.Items {
		if it.Key == key {
			return it.Value, true
		}
	}
	return "", false
}

// Process represents a single instrumented execution. Immutable once
// constructed; the ingestion tier is the only writer.
type Process struct {
	ProcessID      string
	Exe            string
	Host           string
	Username       string
	TscFrequency   uint64
	StartTime      time.Time
	StartTicks     int64
	ParentProcessID string // empty if root
	Properties     *PropertySet
}

// Stream is a sequence of binary blocks produced by one logical channel
// (a thread, a log channel) within a process.
type Stream struct {
	StreamID         string
	ProcessID        string
	Tags             []string
	Properties       *PropertySet // stream-level properties
	ProcessProperties *PropertySet // denormalized owning-process properties
}

// HasTag reports whether the stream carries the given tag.
func (s *Stream) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Block is a fixed-schema-described self-contained binary payload
// produced by a stream.
type Block struct {
	BlockID        string
	StreamID       string
	ProcessID      string
	BeginTicks     int64
	EndTicks       int64
	BeginTime      time.Time
	EndTime        time.Time
	NbObjects      int
	ObjectOffset   int64 // running count of events preceding this block in its stream
	PayloadSize    int64
	PayloadLocation string // object store path
}
