package block

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

// Dispatcher receives one decoded Record per object in a block, in
// storage order. Implementations (ThreadVisitor, AsyncVisitor) ignore
// type names they don't recognize, which is what lets a single block
// carry events meant for different downstream views.
type Dispatcher interface {
	Dispatch(rec *Record) error
}

// Decode decompresses and parses a sealed block's payload, dispatching
// each contained object to d in storage order. A malformed header
// (bad magic, unsupported version, truncated UDT/dependency table) is
// unrecoverable and returned wrapped in a *headerError. A single
// malformed object — a type tag out of range, or a Dispatch error —
// also fails decoding: it is reported to onObjectError if non-nil and
// then returned wrapped in an *objectError with its index and type for
// position context, per §4.1/§7's no-silent-swallowing rule. The
// caller (§4.8's BlockProcessor) decides whether that failure aborts
// just this block or the whole partition build.
func Decode(raw []byte, d Dispatcher, onObjectError func(error)) error {
	if len(raw) < 8 {
		return &headerError{reason: "block shorter than header"}
	}
	if !bytes.Equal(raw[:4], magic[:]) {
		return &headerError{reason: fmt.Sprintf("bad magic %q", raw[:4])}
	}
	version := binary.LittleEndian.Uint16(raw[4:6])
	if version != wireVersion {
		return &headerError{reason: fmt.Sprintf("unsupported wire version %d", version)}
	}

	fr := flate.NewReader(bytes.NewReader(raw[8:]))
	defer fr.Close()
	payload, err := io.ReadAll(fr)
	if err != nil {
		return &headerError{reason: "inflate", err: err}
	}

	udts, payload, err := parseUDTTable(payload)
	if err != nil {
		return &headerError{reason: "udt table", err: err}
	}
	deps, payload, err := parseDepsTable(payload)
	if err != nil {
		return &headerError{reason: "deps table", err: err}
	}

	objCount, payload, err := readU32(payload)
	if err != nil {
		return &headerError{reason: "object count", err: err}
	}
	for i := uint32(0); i < objCount; i++ {
		var typeTag uint32
		typeTag, payload, err = readU32(payload)
		if err != nil {
			return &headerError{reason: fmt.Sprintf("object %d type tag", i), err: err}
		}
		var objPayload []byte
		objPayload, payload, err = readBlob(payload)
		if err != nil {
			return &headerError{reason: fmt.Sprintf("object %d payload", i), err: err}
		}
		if int(typeTag) >= len(udts) {
			oErr := &objectError{typeName: "?", index: int(i), err: fmt.Errorf("type tag %d out of range", typeTag)}
			if onObjectError != nil {
				onObjectError(oErr)
			}
			return oErr
		}
		rec := &Record{udt: udts[typeTag], payload: objPayload, deps: deps, types: udts}
		if err := d.Dispatch(rec); err != nil {
			oErr := &objectError{typeName: rec.udt.Name, index: int(i), err: err}
			if onObjectError != nil {
				onObjectError(oErr)
			}
			return oErr
		}
	}
	return nil
}
