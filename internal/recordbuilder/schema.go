// Package recordbuilder builds Arrow record batches for the view
// schemas this lakehouse materializes (C2, §4.2): one builder per
// batch, driven by a column schema that marks which string columns are
// low-cardinality enough to dictionary-encode.
package recordbuilder

import (
	"github.com/apache/arrow/go/arrow"
)

// ColumnKind distinguishes the handful of Arrow types this system's
// views actually need; kept narrow on purpose so Builder's type switch
// stays exhaustive and easy to audit.
type ColumnKind int

const (
	KindInt64 ColumnKind = iota
	KindUint64
	KindInt32
	KindUint32
	KindFloat64
	KindString
	KindDictString // string, dictionary-encoded
	KindBinary     // raw bytes — used for the jsonbprop-encoded properties column
	KindTimestampNanos
)

// ColumnSpec describes one output column.
type ColumnSpec struct {
	Name     string
	Kind     ColumnKind
	Nullable bool
}

// Schema is the ordered column list for one view's record batches.
type Schema struct {
	Columns []ColumnSpec
}

// Arrow converts Schema into the arrow.Schema the Arrow builders and
// the parquet writer (C6) both need.
func (s Schema) Arrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: c.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(k ColumnKind) arrow.DataType {
	switch k {
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindUint64:
		return arrow.PrimitiveTypes.Uint64
	case KindInt32:
		return arrow.PrimitiveTypes.Int32
	case KindUint32:
		return arrow.PrimitiveTypes.Uint32
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindString:
		return arrow.BinaryTypes.String
	case KindDictString:
		return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.BinaryTypes.String}
	case KindBinary:
		return arrow.BinaryTypes.Binary
	case KindTimestampNanos:
		return arrow.FixedWidthTypes.Timestamp_ns
	default:
		panic("recordbuilder: unknown column kind")
	}
}

// LogSchema is the log_entries view's column set (§4.2): one row per
// log event, process/exe/level/target dictionary-encoded since a
// single block reuses the same handful of values thousands of times.
func LogSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "time", Kind: KindTimestampNanos},
		{Name: "process_id", Kind: KindDictString},
		{Name: "exe", Kind: KindDictString},
		{Name: "level", Kind: KindDictString},
		{Name: "target", Kind: KindDictString},
		{Name: "msg", Kind: KindString},
		{Name: "properties", Kind: KindBinary, Nullable: true},
		{Name: "process_properties", Kind: KindBinary, Nullable: true},
	}}
}

// ThreadSpanSchema is the thread_spans view's column set: one row per
// completed thread span, with begin/end as the source ticks already
// converted to UTC nanosecond timestamps (C3).
func ThreadSpanSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "process_id", Kind: KindDictString},
		{Name: "exe", Kind: KindDictString},
		{Name: "begin", Kind: KindTimestampNanos},
		{Name: "end", Kind: KindTimestampNanos},
		{Name: "duration_ns", Kind: KindInt64},
		{Name: "name", Kind: KindDictString},
		{Name: "target", Kind: KindDictString},
		{Name: "filename", Kind: KindString},
		{Name: "line", Kind: KindUint32},
		{Name: "process_properties", Kind: KindBinary, Nullable: true},
	}}
}

// AsyncEventSchema is the async_events view's column set (§4.13):
// begin/end events kept as separate rows (not paired into spans), so a
// SQL self-join on span_id can match them across blocks and, when a
// stream spans multiple blocks, across partitions.
func AsyncEventSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "process_id", Kind: KindDictString},
		{Name: "exe", Kind: KindDictString},
		{Name: "time", Kind: KindTimestampNanos},
		{Name: "event_type", Kind: KindDictString}, // "begin" | "end"
		{Name: "span_id", Kind: KindUint64},
		{Name: "parent_span_id", Kind: KindUint64},
		{Name: "depth", Kind: KindUint32},
		{Name: "name", Kind: KindDictString},
		{Name: "target", Kind: KindDictString},
		{Name: "filename", Kind: KindString},
		{Name: "line", Kind: KindUint32},
		{Name: "process_properties", Kind: KindBinary, Nullable: true},
	}}
}
