package block

// AsyncVisitor accumulates the async-span events from one block,
// ignoring thread-span objects. Span id, parent id, and depth are
// carried on the wire rather than reconstructed, since async spans can
// interleave across threads in ways a single decode pass can't resolve
// on its own. Nothing in the core recomputes the hierarchy; begin and
// end events are paired later in SQL by span id.
type AsyncVisitor struct {
	Begins      []AsyncSpanBeginEvent
	Ends        []AsyncSpanEndEvent
	NamedBegins []AsyncNamedSpanBeginEvent
	NamedEnds   []AsyncNamedSpanEndEvent
}

// NewAsyncVisitor returns an empty async-event accumulator.
func NewAsyncVisitor() *AsyncVisitor { return &AsyncVisitor{} }

// Dispatch implements Dispatcher.
func (v *AsyncVisitor) Dispatch(rec *Record) error {
	switch rec.TypeName() {
	case udtBeginAsyncSpanEvent:
		t, err := rec.Int64("time")
		if err != nil {
			return err
		}
		scope, err := rec.ScopeDesc("scope")
		if err != nil {
			return err
		}
		spanID, err := rec.Uint64("span_id")
		if err != nil {
			return err
		}
		parentSpanID, err := rec.Uint64("parent_span_id")
		if err != nil {
			return err
		}
		depth, err := rec.Uint32("depth")
		if err != nil {
			return err
		}
		v.Begins = append(v.Begins, AsyncSpanBeginEvent{Time: t, Scope: scope, SpanID: spanID, ParentSpanID: parentSpanID, Depth: depth})
	case udtEndAsyncSpanEvent:
		t, err := rec.Int64("time")
		if err != nil {
			return err
		}
		scope, err := rec.ScopeDesc("scope")
		if err != nil {
			return err
		}
		spanID, err := rec.Uint64("span_id")
		if err != nil {
			return err
		}
		parentSpanID, err := rec.Uint64("parent_span_id")
		if err != nil {
			return err
		}
		depth, err := rec.Uint32("depth")
		if err != nil {
			return err
		}
		v.Ends = append(v.Ends, AsyncSpanEndEvent{Time: t, Scope: scope, SpanID: spanID, ParentSpanID: parentSpanID, Depth: depth})
	case udtBeginAsyncNamedSpanEvent:
		t, err := rec.Int64("time")
		if err != nil {
			return err
		}
		scope, err := rec.ScopeDesc("scope")
		if err != nil {
			return err
		}
		name, err := rec.String("name")
		if err != nil {
			return err
		}
		spanID, err := rec.Uint64("span_id")
		if err != nil {
			return err
		}
		parentSpanID, err := rec.Uint64("parent_span_id")
		if err != nil {
			return err
		}
		depth, err := rec.Uint32("depth")
		if err != nil {
			return err
		}
		v.NamedBegins = append(v.NamedBegins, AsyncNamedSpanBeginEvent{Time: t, Scope: scope, Name: name, SpanID: spanID, ParentSpanID: parentSpanID, Depth: depth})
	case udtEndAsyncNamedSpanEvent:
		t, err := rec.Int64("time")
		if err != nil {
			return err
		}
		scope, err := rec.ScopeDesc("scope")
		if err != nil {
			return err
		}
		name, err := rec.String("name")
		if err != nil {
			return err
		}
		spanID, err := rec.Uint64("span_id")
		if err != nil {
			return err
		}
		parentSpanID, err := rec.Uint64("parent_span_id")
		if err != nil {
			return err
		}
		depth, err := rec.Uint32("depth")
		if err != nil {
			return err
		}
		v.NamedEnds = append(v.NamedEnds, AsyncNamedSpanEndEvent{Time: t, Scope: scope, Name: name, SpanID: spanID, ParentSpanID: parentSpanID, Depth: depth})
	}
	return nil
}

// Len reports the total number of async events collected.
func (v *AsyncVisitor) Len() int {
	return len(v.Begins) + len(v.Ends) + len(v.NamedBegins) + len(v.NamedEnds)
}
