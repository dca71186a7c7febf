package block

import (
	"encoding/binary"
	"fmt"
)

// Record is one decoded object: its UDT descriptor, its raw payload
// bytes, and the block's shared dependency table for resolving string
// and nested-struct references. Field access is always by name, so a
// visitor tolerates fields it doesn't know about and blocks produced by
// older or newer library versions decode against the same code.
type Record struct {
	udt     UDT
	payload []byte
	deps    [][]byte
	types   []UDT
}

// TypeName is the UDT name this record was tagged with, e.g.
// "BeginThreadSpanEvent".
func (r *Record) TypeName() string { return r.udt.Name }

func (r *Record) field(name string) (UDTField, []byte, error) {
	f, ok := r.udt.FieldByName(name)
	if !ok {
		return UDTField{}, nil, fmt.Errorf("field %q: not present in UDT %s", name, r.udt.Name)
	}
	end := f.Offset + f.Size
	if end > uint32(len(r.payload)) {
		return UDTField{}, nil, fmt.Errorf("field %q: offset %d+%d exceeds payload length %d", name, f.Offset, f.Size, len(r.payload))
	}
	return f, r.payload[f.Offset:end], nil
}

// Uint64 reads a fixed-width u64 field. Per §7, a value that can't be
// decoded is reported rather than silently substituted with 0.
func (r *Record) Uint64(name string) (uint64, error) {
	_, raw, err := r.field(name)
	if err != nil {
		return 0, err
	}
	if len(raw) < 8 {
		return 0, fmt.Errorf("field %q: want 8 bytes, have %d", name, len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// Int64 reads a fixed-width i64 field.
func (r *Record) Int64(name string) (int64, error) {
	v, err := r.Uint64(name)
	return int64(v), err
}

// Uint32 reads a fixed-width u32 field.
func (r *Record) Uint32(name string) (uint32, error) {
	_, raw, err := r.field(name)
	if err != nil {
		return 0, err
	}
	if len(raw) < 4 {
		return 0, fmt.Errorf("field %q: want 4 bytes, have %d", name, len(raw))
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// String resolves a string-ref field through the dependency table.
func (r *Record) String(name string) (string, error) {
	_, raw, err := r.field(name)
	if err != nil {
		return "", err
	}
	if len(raw) < 4 {
		return "", fmt.Errorf("field %q: want 4 bytes, have %d", name, len(raw))
	}
	idx := binary.LittleEndian.Uint32(raw)
	if int(idx) >= len(r.deps) {
		return "", fmt.Errorf("field %q: dependency index %d out of range (%d deps)", name, idx, len(r.deps))
	}
	return string(r.deps[idx]), nil
}

// ScopeDesc resolves a scope_desc-ref field through the dependency
// table: the referenced blob carries its own UDT tag (so ScopeDesc
// itself can evolve independently of the event that embeds it) and a
// nested payload decoded against that tag.
func (r *Record) ScopeDesc(name string) (ScopeDesc, error) {
	_, raw, err := r.field(name)
	if err != nil {
		return ScopeDesc{}, err
	}
	if len(raw) < 4 {
		return ScopeDesc{}, fmt.Errorf("field %q: want 4 bytes, have %d", name, len(raw))
	}
	idx := binary.LittleEndian.Uint32(raw)
	if int(idx) >= len(r.deps) {
		return ScopeDesc{}, fmt.Errorf("field %q: dependency index %d out of range (%d deps)", name, idx, len(r.deps))
	}
	blob := r.deps[idx]
	if len(blob) < 4 {
		return ScopeDesc{}, fmt.Errorf("field %q: scope blob too short (%d bytes)", name, len(blob))
	}
	tag := binary.LittleEndian.Uint32(blob[:4])
	if int(tag) >= len(r.types) {
		return ScopeDesc{}, fmt.Errorf("field %q: scope type tag %d out of range", name, tag)
	}
	nested := &Record{udt: r.types[tag], payload: blob[4:], deps: r.deps, types: r.types}
	scopeName, err := nested.String("name")
	if err != nil {
		return ScopeDesc{}, fmt.Errorf("field %q: %w", name, err)
	}
	target, err := nested.String("target")
	if err != nil {
		return ScopeDesc{}, fmt.Errorf("field %q: %w", name, err)
	}
	file, err := nested.String("file")
	if err != nil {
		return ScopeDesc{}, fmt.Errorf("field %q: %w", name, err)
	}
	line, err := nested.Uint32("line")
	if err != nil {
		return ScopeDesc{}, fmt.Errorf("field %q: %w", name, err)
	}
	return ScopeDesc{Name: scopeName, Target: target, File: file, Line: line}, nil
}

// ScopeDesc describes the call site a span event was recorded at:
// the scope's display name, its target module, and its source
// location (§4.1).
type ScopeDesc struct {
	Name   string
	Target string
	File   string
	Line   uint32
}
