// Package jsonbprop implements the JSONB-family binary encoding for
// property bags and the two caching tiers described in §4.2: process
// properties are serialized once per query, event properties are
// deduplicated per block by the pointer identity of the shared
// model.PropertySet.
//
// The wire shape is intentionally simple — a length-prefixed list of
// length-prefixed (key, value) string pairs — so that property_get
// (§4.12) can do a linear scan without a decode pass, and
// jsonb_format_json can re-render it without a schema.
package jsonbprop

import (
	"encoding/binary"
	"fmt"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// Encode serializes a PropertySet into its binary JSONB-family form.
// A nil set encodes as an empty map (zero entries), never as a null
// marker — property_get on a never-set key already returns NULL at the
// SQL layer, so the binary form has no need for its own null sentinel.
func Encode(p *model.PropertySet) []byte {
	var items []model.Property
	if p != nil {
		items = p.Items
	}
	buf := make([]byte, 0, 8+16*len(items))
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(items)))
	buf = append(buf, hdr[:]...)
	for _, it := range items {
		buf = appendLenPrefixed(buf, it.Key)
		buf = appendLenPrefixed(buf, it.Value)
	}
	return buf
}

func appendLenPrefixed(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

// Decode parses the binary form back into key/value pairs, in their
// original order, for jsonb_format_json / properties_to_dict.
func Decode(data []byte) ([]model.Property, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("jsonbprop: truncated header (%d bytes)", len(data))
	}
	count := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	out := make([]model.Property, 0, count)
	for i := uint32(0); i < count; i++ {
		key, rest, err := readLenPrefixed(data)
		if err != nil {
			return nil, fmt.Errorf("jsonbprop: reading key %d: %w", i, err)
		}
		val, rest2, err := readLenPrefixed(rest)
		if err != nil {
			return nil, fmt.Errorf("jsonbprop: reading value %d: %w", i, err)
		}
		out = append(out, model.Property{Key: key, Value: val})
		data = rest2
	}
	return out, nil
}

func readLenPrefixed(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return "", nil, fmt.Errorf("truncated value (want %d, have %d)", n, len(data))
	}
	return string(data[:n]), data[n:], nil
}

// Get performs the linear search property_get needs directly on the
// encoded bytes, skipping a full Decode when only one key is wanted.
func Get(data []byte, key string) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	count := binary.LittleEndian.Uint32(data[:4])
	rest := data[4:]
	for i := uint32(0); i < count; i++ {
		k, r1, err := readLenPrefixed(rest)
		if err != nil {
			return "", false
		}
		v, r2, err := readLenPrefixed(r1)
		if err != nil {
			return "", false
		}
		if k == key {
			return v, true
		}
		rest = r2
	}
	return "", false
}
