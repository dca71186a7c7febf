package block

// ThreadVisitor accumulates the thread-span events from one block,
// ignoring every other object type — in particular it is blind to
// async-span events sharing the same block (§4.1 and the round-trip
// property in §8: the two visitors produce disjoint, non-empty event
// sets over the same decoded stream).
type ThreadVisitor struct {
	Begins      []ThreadSpanBeginEvent
	Ends        []ThreadSpanEndEvent
	NamedBegins []ThreadNamedSpanBeginEvent
	NamedEnds   []ThreadNamedSpanEndEvent
}

// NewThreadVisitor returns an empty thread-event accumulator.
func NewThreadVisitor() *ThreadVisitor { return &ThreadVisitor{} }

// Dispatch implements Dispatcher.
func (v *ThreadVisitor) Dispatch(rec *Record) error {
	switch rec.TypeName() {
	case udtBeginThreadSpanEvent:
		t, err := rec.Int64("time")
		if err != nil {
			return err
		}
		scope, err := rec.ScopeDesc("scope")
		if err != nil {
			return err
		}
		v.Begins = append(v.Begins, ThreadSpanBeginEvent{Time: t, Scope: scope})
	case udtEndThreadSpanEvent:
		t, err := rec.Int64("time")
		if err != nil {
			return err
		}
		scope, err := rec.ScopeDesc("scope")
		if err != nil {
			return err
		}
		v.Ends = append(v.Ends, ThreadSpanEndEvent{Time: t, Scope: scope})
	case udtBeginThreadNamedSpanEvent:
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
		v.NamedBegins = append(v.NamedBegins, ThreadNamedSpanBeginEvent{Time: t, Scope: scope, Name: name})
	case udtEndThreadNamedSpanEvent:
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
		v.NamedEnds = append(v.NamedEnds, ThreadNamedSpanEndEvent{Time: t, Scope: scope, Name: name})
	}
	// Any other type name (async events, future additions) is simply
	// not ours.
	return nil
}

// Len reports the total number of thread events collected, used by
// callers and tests to assert the "non-empty" half of the disjoint
// round-trip property.
func (v *ThreadVisitor) Len() int {
	return len(v.Begins) + len(v.Ends) + len(v.NamedBegins) + len(v.NamedEnds)
}
