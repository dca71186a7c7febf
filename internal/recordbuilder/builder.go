package recordbuilder

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
)

// Builder accumulates rows for one block's contribution to a view's
// output (§4.2). It supports two append paths: AppendRow for values
// that vary per event, and AppendConstant for values fixed for the
// whole block (process id, exe, and anything already resolved through
// the jsonbprop process-property cache) so the builder doesn't pay a
// per-row map lookup for data that never changes within a block.
type Builder struct {
	schema  Schema
	rb      *array.RecordBuilder
	rows    int
	minTime int64
	maxTime int64
	haveT   bool
}

// New allocates a Builder for schema using mem.
func New(mem memory.Allocator, schema Schema) *Builder {
	return &Builder{schema: schema, rb: array.NewRecordBuilder(mem, schema.Arrow())}
}

func (b *Builder) fieldIndex(name string) int {
	for i, c := range b.schema.Columns {
		if c.Name == name {
			return i
		}
	}
	panic(fmt.Sprintf("recordbuilder: unknown column %q", name))
}

// AppendRow appends one row using the per-event values in vals, keyed
// by column name. Columns absent from vals get a null.
func (b *Builder) AppendRow(vals map[string]any) error {
	for i, col := range b.schema.Columns {
		v, ok := vals[col.Name]
		fb := b.rb.Field(i)
		if !ok {
			fb.AppendNull()
			continue
		}
		if err := appendValue(fb, col.Kind, v); err != nil {
			return fmt.Errorf("recordbuilder: column %q: %w", col.Name, err)
		}
		if col.Kind == KindTimestampNanos {
			b.trackTime(v)
		}
	}
	b.rows++
	return nil
}

// AppendConstant fills one column with the same value for the next n
// rows without those rows existing yet — callers pair this with a
// following AppendRow burst for the remaining per-event columns, or
// call it for every column when a whole block shares identical values
// (e.g. a process with a single log line repeated via a counter).
// Unlike AppendRow, it does not advance Len() or TimeRange(); callers
// driving a whole batch through AppendConstant track row counts
// themselves.
func (b *Builder) AppendConstant(name string, value any, n int) error {
	idx := b.fieldIndex(name)
	fb := b.rb.Field(idx)
	kind := b.schema.Columns[idx].Kind
	for i := 0; i < n; i++ {
		if err := appendValue(fb, kind, value); err != nil {
			return fmt.Errorf("recordbuilder: constant column %q: %w", name, err)
		}
	}
	return nil
}

func (b *Builder) trackTime(v any) {
	var ns int64
	switch t := v.(type) {
	case int64:
		ns = t
	case time.Time:
		ns = t.UnixNano()
	default:
		return
	}
	if !b.haveT {
		b.minTime, b.maxTime = ns, ns
		b.haveT = true
		return
	}
	if ns < b.minTime {
		b.minTime = ns
	}
	if ns > b.maxTime {
		b.maxTime = ns
	}
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.rows }

// TimeRange returns the [min, max] nanosecond timestamps seen across
// every timestamp column appended, used to populate a partition's
// event-time metadata (EventMin/EventMax). ok is false if no timestamp value was
// ever appended.
func (b *Builder) TimeRange() (min, max int64, ok bool) {
	return b.minTime, b.maxTime, b.haveT
}

// Finish materializes the accumulated rows into an immutable
// arrow.Record and resets the builder for the next batch. The caller
// owns the returned record and must Release it.
func (b *Builder) Finish() arrow.Record {
	rec := b.rb.NewRecord()
	b.rows = 0
	b.haveT = false
	return rec
}

// Release frees the underlying Arrow buffers. Call once the builder
// (and any record already taken from Finish) is no longer needed.
func (b *Builder) Release() { b.rb.Release() }

func appendValue(fb array.Builder, kind ColumnKind, v any) error {
	switch kind {
	case KindInt64:
		bld, ok := fb.(*array.Int64Builder)
		if !ok {
			return fmt.Errorf("builder type mismatch for int64 column")
		}
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		bld.Append(i)
	case KindUint64:
		bld, ok := fb.(*array.Uint64Builder)
		if !ok {
			return fmt.Errorf("builder type mismatch for uint64 column")
		}
		i, err := toUint64(v)
		if err != nil {
			return err
		}
		bld.Append(i)
	case KindInt32:
		bld, ok := fb.(*array.Int32Builder)
		if !ok {
			return fmt.Errorf("builder type mismatch for int32 column")
		}
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		bld.Append(int32(i))
	case KindUint32:
		bld, ok := fb.(*array.Uint32Builder)
		if !ok {
			return fmt.Errorf("builder type mismatch for uint32 column")
		}
		i, err := toUint64(v)
		if err != nil {
			return err
		}
		bld.Append(uint32(i))
	case KindFloat64:
		bld, ok := fb.(*array.Float64Builder)
		if !ok {
			return fmt.Errorf("builder type mismatch for float64 column")
		}
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", v)
		}
		bld.Append(f)
	case KindString:
		bld, ok := fb.(*array.StringBuilder)
		if !ok {
			return fmt.Errorf("builder type mismatch for string column")
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		bld.Append(s)
	case KindDictString:
		bld, ok := fb.(*array.BinaryDictionaryBuilder)
		if !ok {
			return fmt.Errorf("builder type mismatch for dictionary column")
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		return bld.AppendString(s)
	case KindBinary:
		bld, ok := fb.(*array.BinaryBuilder)
		if !ok {
			return fmt.Errorf("builder type mismatch for binary column")
		}
		raw, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", v)
		}
		bld.Append(raw)
	case KindTimestampNanos:
		bld, ok := fb.(*array.TimestampBuilder)
		if !ok {
			return fmt.Errorf("builder type mismatch for timestamp column")
		}
		ns, err := timestampNanos(v)
		if err != nil {
			return err
		}
		bld.Append(arrow.Timestamp(ns))
	default:
		return fmt.Errorf("unhandled column kind %d", kind)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint32:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case int:
		return uint64(t), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func timestampNanos(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case time.Time:
		return t.UnixNano(), nil
	default:
		return 0, fmt.Errorf("expected int64 or time.Time, got %T", v)
	}
}
