package block

// StandardSchema returns the UDT table used by every producer in this
// implementation. Real producers are free to lay fields out differently
// from one library version to the next — that's the whole point of the
// named-field design — but local tooling and tests need one concrete
// layout to build fixtures against.
type StandardSchema struct {
	ScopeDesc                 int
	BeginThreadSpanEvent      int
	EndThreadSpanEvent        int
	BeginThreadNamedSpanEvent int
	EndThreadNamedSpanEvent   int
	BeginAsyncSpanEvent       int
	EndAsyncSpanEvent         int
	BeginAsyncNamedSpanEvent  int
	EndAsyncNamedSpanEvent    int
}

// DefineStandardSchema registers the standard UDT table on b and
// returns the resulting indices.
func DefineStandardSchema(b *Builder) StandardSchema {
	scope := b.DefineUDT(UDT{Name: "ScopeDesc", Fields: []UDTField{
		{Name: "name", Type: FieldString, Offset: 0, Size: 4},
		{Name: "target", Type: FieldString, Offset: 4, Size: 4},
		{Name: "file", Type: FieldString, Offset: 8, Size: 4},
		{Name: "line", Type: FieldU32, Offset: 12, Size: 4},
	}})

	threadFields := []UDTField{
		{Name: "time", Type: FieldI64, Offset: 0, Size: 8},
		{Name: "scope", Type: FieldScopeDesc, Offset: 8, Size: 4},
	}
	threadNamedFields := []UDTField{
		{Name: "time", Type: FieldI64, Offset: 0, Size: 8},
		{Name: "scope", Type: FieldScopeDesc, Offset: 8, Size: 4},
		{Name: "name", Type: FieldString, Offset: 12, Size: 4},
	}
	asyncFields := []UDTField{
		{Name: "time", Type: FieldI64, Offset: 0, Size: 8},
		{Name: "scope", Type: FieldScopeDesc, Offset: 8, Size: 4},
		{Name: "span_id", Type: FieldU64, Offset: 12, Size: 8},
		{Name: "parent_span_id", Type: FieldU64, Offset: 20, Size: 8},
		{Name: "depth", Type: FieldU32, Offset: 28, Size: 4},
	}
	asyncNamedFields := []UDTField{
		{Name: "time", Type: FieldI64, Offset: 0, Size: 8},
		{Name: "scope", Type: FieldScopeDesc, Offset: 8, Size: 4},
		{Name: "name", Type: FieldString, Offset: 12, Size: 4},
		{Name: "span_id", Type: FieldU64, Offset: 16, Size: 8},
		{Name: "parent_span_id", Type: FieldU64, Offset: 24, Size: 8},
		{Name: "depth", Type: FieldU32, Offset: 32, Size: 4},
	}

	return StandardSchema{
		ScopeDesc:                 scope,
		BeginThreadSpanEvent:      b.DefineUDT(UDT{Name: udtBeginThreadSpanEvent, Fields: threadFields}),
		EndThreadSpanEvent:        b.DefineUDT(UDT{Name: udtEndThreadSpanEvent, Fields: threadFields}),
		BeginThreadNamedSpanEvent: b.DefineUDT(UDT{Name: udtBeginThreadNamedSpanEvent, Fields: threadNamedFields}),
		EndThreadNamedSpanEvent:   b.DefineUDT(UDT{Name: udtEndThreadNamedSpanEvent, Fields: threadNamedFields}),
		BeginAsyncSpanEvent:       b.DefineUDT(UDT{Name: udtBeginAsyncSpanEvent, Fields: asyncFields}),
		EndAsyncSpanEvent:         b.DefineUDT(UDT{Name: udtEndAsyncSpanEvent, Fields: asyncFields}),
		BeginAsyncNamedSpanEvent:  b.DefineUDT(UDT{Name: udtBeginAsyncNamedSpanEvent, Fields: asyncNamedFields}),
		EndAsyncNamedSpanEvent:    b.DefineUDT(UDT{Name: udtEndAsyncNamedSpanEvent, Fields: asyncNamedFields}),
	}
}
