package block

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
)

// Builder assembles a sealed block in the wire format Decode expects.
// Production blocks arrive already encoded from instrumented processes;
// Builder exists for local tooling and tests that need to construct a
// block without a live producer.
type Builder struct {
	udts    []UDT
	udtIdx  map[string]int
	deps    [][]byte
	depOf   map[string]uint32
	objects []builtObject
}

type builtObject struct {
	typeTag uint32
	payload []byte
}

// NewBuilder returns an empty block builder.
func NewBuilder() *Builder {
	return &Builder{udtIdx: map[string]int{}, depOf: map[string]uint32{}}
}

// DefineUDT registers a type descriptor, returning its index for use
// with AddObject. Registering the same name twice is a bug in the
// caller and panics, since a block's type table is fixed at build time.
func (b *Builder) DefineUDT(u UDT) int {
	if _, exists := b.udtIdx[u.Name]; exists {
		panic("block: duplicate UDT name " + u.Name)
	}
	idx := len(b.udts)
	b.udts = append(b.udts, u)
	b.udtIdx[u.Name] = idx
	return idx
}

// internString interns a string into the dependency table, returning
// its index. Equal strings share one entry.
func (b *Builder) internString(s string) uint32 {
	if idx, ok := b.depOf[s]; ok {
		return idx
	}
	idx := uint32(len(b.deps))
	b.deps = append(b.deps, []byte(s))
	b.depOf[s] = idx
	return idx
}

// PutString writes a string-ref field into payload at field f.
func (b *Builder) PutString(payload []byte, f UDTField, s string) {
	binary.LittleEndian.PutUint32(payload[f.Offset:], b.internString(s))
}

// PutScopeDesc writes a scope_desc-ref field, interning a nested
// ScopeDesc object tagged with its own UDT index.
func (b *Builder) PutScopeDesc(payload []byte, f UDTField, scopeUDT int, desc ScopeDesc) {
	scope := b.udts[scopeUDT]
	nested := make([]byte, fieldsSize(scope.Fields))
	for _, sf := range scope.Fields {
		switch sf.Name {
		case "name":
			binary.LittleEndian.PutUint32(nested[sf.Offset:], b.internString(desc.Name))
		case "target":
			binary.LittleEndian.PutUint32(nested[sf.Offset:], b.internString(desc.Target))
		case "file":
			binary.LittleEndian.PutUint32(nested[sf.Offset:], b.internString(desc.File))
		case "line":
			binary.LittleEndian.PutUint32(nested[sf.Offset:], desc.Line)
		}
	}
	blob := make([]byte, 4+len(nested))
	binary.LittleEndian.PutUint32(blob, uint32(scopeUDT))
	copy(blob[4:], nested)
	idx := uint32(len(b.deps))
	b.deps = append(b.deps, blob)

	binary.LittleEndian.PutUint32(payload[f.Offset:], idx)
}

func fieldsSize(fields []UDTField) uint32 {
	var max uint32
	for _, f := range fields {
		if end := f.Offset + f.Size; end > max {
			max = end
		}
	}
	return max
}

// NewPayload allocates a zeroed payload buffer sized to fit udtIdx's
// fields.
func (b *Builder) NewPayload(udtIdx int) []byte {
	return make([]byte, fieldsSize(b.udts[udtIdx].Fields))
}

// AddObject appends a fully-populated payload as an instance of
// udtIdx, in storage order.
func (b *Builder) AddObject(udtIdx int, payload []byte) {
	b.objects = append(b.objects, builtObject{typeTag: uint32(udtIdx), payload: payload})
}

// Build serializes the header, UDT table, dependency table, and
// objects into the compressed wire format Decode reads.
func (b *Builder) Build() []byte {
	var payload bytes.Buffer

	writeU32(&payload, uint32(len(b.udts)))
	for _, u := range b.udts {
		writeString(&payload, u.Name)
		writeU32(&payload, uint32(len(u.Fields)))
		for _, f := range u.Fields {
			writeString(&payload, f.Name)
			payload.WriteByte(byte(f.Type))
			writeU32(&payload, f.Offset)
			writeU32(&payload, f.Size)
		}
	}

	writeU32(&payload, uint32(len(b.deps)))
	for _, d := range b.deps {
		writeU32(&payload, uint32(len(d)))
		payload.Write(d)
	}

	writeU32(&payload, uint32(len(b.objects)))
	for _, o := range b.objects {
		writeU32(&payload, o.typeTag)
		writeU32(&payload, uint32(len(o.payload)))
		payload.Write(o.payload)
	}

	var compressed bytes.Buffer
	fw, _ := flate.NewWriter(&compressed, flate.DefaultCompression)
	_, _ = fw.Write(payload.Bytes())
	_ = fw.Close()

	out := make([]byte, 0, 8+compressed.Len())
	out = append(out, magic[:]...)
	var verBuf [2]byte
	binary.LittleEndian.PutUint16(verBuf[:], wireVersion)
	out = append(out, verBuf[:]...)
	out = append(out, 0, 0) // reserved
	out = append(out, compressed.Bytes()...)
	return out
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
