// Package sqlengine builds the query-engine session the analytics
// core hands a client (C12, §4.12): it registers the globally
// scheduled view instances as tables, reaches JIT-only views through
// ViewInstanceResolver (a Go call, not a SQL table function), and
// provides the scalar functions used to work with JSONB-encoded
// property bags.
package sqlengine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/jsonbprop"
	"github.com/madesroches/micromegas-sub003/internal/model"
)

// PropertyGet performs §4.12's property_get(properties, key): a linear
// search over the JSONB-encoded property bytes, returning ("", false)
// for a missing key so the caller can surface SQL NULL.
func PropertyGet(properties []byte, key string) (string, bool) {
	return jsonbprop.Get(properties, key)
}

// PropertiesToDict renders a property bag as a JSON object string —
// the group-by-friendly representation §4.12 calls dict<utf8, jsonb>.
// gms has no native dictionary column type; a canonical JSON object
// string sorts and compares the same way a dict would for GROUP BY
// purposes, which is the only operation §4.12 asks this function to
// support.
func PropertiesToDict(properties []byte) (string, error) {
	return formatPropertiesJSON(properties)
}

func formatPropertiesJSON(properties []byte) (string, error) {
	items, err := jsonbprop.Decode(properties)
	if err != nil {
		return "", fmt.Errorf("sqlengine: decoding properties: %w", err)
	}
	m := make(map[string]string, len(items))
	for _, it := range items {
		m[it.Key] = it.Value
	}
	out, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("sqlengine: encoding properties as JSON: %w", err)
	}
	return string(out), nil
}

// PropertyPair is one (key, value) element of the list<struct<key,
// value>> legacy format properties_to_jsonb bridges from.
type PropertyPair struct {
	Key   string
	Value string
}

// PropertiesToJSONB implements properties_to_jsonb: the legacy
// list<struct<key,value>> representation, re-encoded into the binary
// JSONB form every other property-bearing column already uses.
func PropertiesToJSONB(pairs []PropertyPair) []byte {
	items := make([]model.Property, len(pairs))
	for i, p := range pairs {
		items[i] = model.Property{Key: p.Key, Value: p.Value}
	}
	return jsonbprop.Encode(&model.PropertySet{Items: items})
}

// JSONBFormatJSON implements jsonb_format_json(binary) — the debug/
// export formatter for a single property bag.
func JSONBFormatJSON(properties []byte) (string, error) {
	return formatPropertiesJSON(properties)
}

// JSONBFormatJSONGroup implements the dict<int, binary> overload:
// rendering a group-by result's per-group property bags (keyed by an
// opaque int group id, as gms surfaces an aggregated column) as one
// JSON object of objects.
func JSONBFormatJSONGroup(groups map[int][]byte) (string, error) {
	out := make(map[string]json.RawMessage, len(groups))
	for id, data := range groups {
		rendered, err := formatPropertiesJSON(data)
		if err != nil {
			return "", err
		}
		out[fmt.Sprintf("%d", id)] = json.RawMessage(rendered)
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("sqlengine: encoding group properties: %w", err)
	}
	return string(encoded), nil
}

// TimeBin truncates t to the start of the bucket it falls in —
// §4.12's "time binning" function, the same grain alignment
// internal/jit's slots() does internally. RegisterBuiltins does not
// register it, so it is callable from Go only.
func TimeBin(t time.Time, bucket time.Duration) time.Time {
	if bucket <= 0 {
		return t
	}
	return t.Truncate(bucket)
}

// NanosExtract implements nanosecond extraction: the event-time
// column's value as nanoseconds since the Unix epoch, the unit every
// partition's time column is stored in internally.
func NanosExtract(t time.Time) int64 {
	return t.UnixNano()
}

// FormatDuration renders a nanosecond count the way a human-facing
// query result should: Go's own compact duration syntax, consistent
// with duration_ns columns throughout the schema (e.g.
// SpanDurationStatsSource).
func FormatDuration(ns int64) string {
	return time.Duration(ns).String()
}
