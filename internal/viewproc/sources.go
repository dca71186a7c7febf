package viewproc

import (
	"github.com/madesroches/micromegas-sub003/internal/block"
	"github.com/madesroches/micromegas-sub003/internal/jsonbprop"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/madesroches/micromegas-sub003/internal/timeconv"
)

// logDispatcher decodes the log-entry objects out of a block's generic
// object stream. Log events aren't thread- or async-span events, so
// they get their own small Dispatcher rather than reusing ThreadVisitor.
type logEvent struct {
	Time  int64
	Level string
	Target string
	Msg   string
}

type logDispatcher struct {
	events []logEvent
}

const udtLogEvent = "LogStaticStrEvent"

func (d *logDispatcher) Dispatch(rec *block.Record) error {
	if rec.TypeName() != udtLogEvent {
		return nil
	}
	t, err := rec.Int64("time")
	if err != nil {
		return err
	}
	level, err := rec.String("level")
	if err != nil {
		return err
	}
	target, err := rec.String("target")
	if err != nil {
		return err
	}
	msg, err := rec.String("msg")
	if err != nil {
		return err
	}
	d.events = append(d.events, logEvent{Time: t, Level: level, Target: target, Msg: msg})
	return nil
}

// LogEntriesSource is the block-source glue for the log_entries view-set.
type LogEntriesSource struct{}

func (LogEntriesSource) Schema() recordbuilder.Schema { return recordbuilder.LogSchema() }
func (LogEntriesSource) NewDispatcher() block.Dispatcher { return &logDispatcher{} }

func (LogEntriesSource) AppendRows(b *recordbuilder.Builder, blk *model.Block, proc *model.Process, conv timeconv.Converter, d block.Dispatcher, procProps *jsonbprop.ProcessCache, events *jsonbprop.EventCache) error {
	ld := d.(*logDispatcher)
	procPropsBin := procProps.Encode(proc)
	// The wire format carries no per-log-entry property set today, so
	// every row in a block shares the same (empty) encoding; it still
	// goes through EventCache so property_get(properties,...) sees a
	// well-formed JSONB map rather than a bare SQL null.
	entryPropsBin := events.Encode(nil)
	for _, ev := range ld.events {
		err := b.AppendRow(map[string]any{
			"time":               conv.ToTime(ev.Time),
			"process_id":         proc.ProcessID,
			"exe":                proc.Exe,
			"level":              ev.Level,
			"target":             ev.Target,
			"msg":                ev.Msg,
			"properties":         entryPropsBin,
			"process_properties": procPropsBin,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ThreadSpansSource is the block-source glue for the thread_spans
// view-set: it pairs each ThreadSpanBeginEvent/NamedBeginEvent with the
// next matching end event in the same block by strict call-stack order
// (§4.1 — thread spans nest within one thread, so a simple stack
// suffices; no span id is needed).
type ThreadSpansSource struct{}

func (ThreadSpansSource) Schema() recordbuilder.Schema   { return recordbuilder.ThreadSpanSchema() }
func (ThreadSpansSource) NewDispatcher() block.Dispatcher { return block.NewThreadVisitor() }

type threadSpan struct {
	beginTick int64
	endTick   int64
	name      string
	target    string
	filename  string
	line      uint32
}

func pairThreadSpans(v *block.ThreadVisitor) []threadSpan {
	type stackEntry struct {
		tick     int64
		name     string
		target   string
		filename string
		line     uint32
	}
	var stack []stackEntry
	var spans []threadSpan

	for _, e := range v.Begins {
		stack = append(stack, stackEntry{tick: e.Time, name: e.Scope.Name, target: e.Scope.Target, filename: e.Scope.File, line: e.Scope.Line})
	}
	for _, e := range v.Ends {
		if len(stack) == 0 {
			continue
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		spans = append(spans, threadSpan{beginTick: top.tick, endTick: e.Time, name: top.name, target: top.target, filename: top.filename, line: top.line})
	}
	for _, e := range v.NamedBegins {
		stack = append(stack, stackEntry{tick: e.Time, name: e.Name, target: e.Scope.Target, filename: e.Scope.File, line: e.Scope.Line})
	}
	for _, e := range v.NamedEnds {
		if len(stack) == 0 {
			continue
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		spans = append(spans, threadSpan{beginTick: top.tick, endTick: e.Time, name: top.name, target: top.target, filename: top.filename, line: top.line})
	}
	return spans
}

func (ThreadSpansSource) AppendRows(b *recordbuilder.Builder, blk *model.Block, proc *model.Process, conv timeconv.Converter, d block.Dispatcher, procProps *jsonbprop.ProcessCache, events *jsonbprop.EventCache) error {
	v := d.(*block.ThreadVisitor)
	procPropsBin := procProps.Encode(proc)
	for _, s := range pairThreadSpans(v) {
		begin := conv.ToTime(s.beginTick)
		end := conv.ToTime(s.endTick)
		err := b.AppendRow(map[string]any{
			"process_id":         proc.ProcessID,
			"exe":                proc.Exe,
			"begin":              begin,
			"end":                end,
			"duration_ns":        end.Sub(begin).Nanoseconds(),
			"name":               s.name,
			"target":             s.target,
			"filename":           s.filename,
			"line":               s.line,
			"process_properties": procPropsBin,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AsyncEventsSource is the block-source glue for the async_events
// view-set: begin/end events are emitted as-is (one row per event, not
// one row per paired span), with span id, parent id and depth taken
// from the wire unchanged. Pairing a begin with its end, and hence
// duration, is left to SQL (a self-join on span_id).
type AsyncEventsSource struct{}

func (AsyncEventsSource) Schema() recordbuilder.Schema    { return recordbuilder.AsyncEventSchema() }
func (AsyncEventsSource) NewDispatcher() block.Dispatcher { return block.NewAsyncVisitor() }

func (AsyncEventsSource) AppendRows(b *recordbuilder.Builder, blk *model.Block, proc *model.Process, conv timeconv.Converter, d block.Dispatcher, procProps *jsonbprop.ProcessCache, events *jsonbprop.EventCache) error {
	v := d.(*block.AsyncVisitor)
	procPropsBin := procProps.Encode(proc)
	appendEvent := func(eventType string, t int64, scope block.ScopeDesc, spanID, parentSpanID uint64, depth uint32) error {
		return b.AppendRow(map[string]any{
			"process_id":         proc.ProcessID,
			"exe":                proc.Exe,
			"time":               conv.ToTime(t),
			"event_type":         eventType,
			"span_id":            spanID,
			"parent_span_id":     parentSpanID,
			"depth":              depth,
			"name":               scope.Name,
			"target":             scope.Target,
			"filename":           scope.File,
			"line":               scope.Line,
			"process_properties": procPropsBin,
		})
	}
	for _, e := range v.Begins {
		if err := appendEvent("begin", e.Time, e.Scope, e.SpanID, e.ParentSpanID, e.Depth); err != nil {
			return err
		}
	}
	for _, e := range v.Ends {
		if err := appendEvent("end", e.Time, e.Scope, e.SpanID, e.ParentSpanID, e.Depth); err != nil {
			return err
		}
	}
	for _, e := range v.NamedBegins {
		scope := block.ScopeDesc{Name: e.Name, Target: e.Scope.Target, File: e.Scope.File, Line: e.Scope.Line}
		if err := appendEvent("begin", e.Time, scope, e.SpanID, e.ParentSpanID, e.Depth); err != nil {
			return err
		}
	}
	for _, e := range v.NamedEnds {
		scope := block.ScopeDesc{Name: e.Name, Target: e.Scope.Target, File: e.Scope.File, Line: e.Scope.Line}
		if err := appendEvent("end", e.Time, scope, e.SpanID, e.ParentSpanID, e.Depth); err != nil {
			return err
		}
	}
	return nil
}
