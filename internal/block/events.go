package block

// Thread-span events (§4.1): nested, synchronous spans recorded on a
// single thread, identified only by call order and depth — no span id
// travels on the wire because thread spans never cross threads.
type (
	ThreadSpanBeginEvent struct {
		Time  int64
		Scope ScopeDesc
	}
	ThreadSpanEndEvent struct {
		Time  int64
		Scope ScopeDesc
	}
	ThreadNamedSpanBeginEvent struct {
		Time  int64
		Scope ScopeDesc
		Name  string
	}
	ThreadNamedSpanEndEvent struct {
		Time  int64
		Scope ScopeDesc
		Name  string
	}
)

// Async-span events (§4.1, §4.13): spans that can begin on one thread
// and end on another, so they carry an explicit span id, the id of
// their parent (0 if none), and the nesting depth as recorded at
// instrumentation time.
type (
	AsyncSpanBeginEvent struct {
		Time         int64
		Scope        ScopeDesc
		SpanID       uint64
		ParentSpanID uint64
		Depth        uint32
	}
	AsyncSpanEndEvent struct {
		Time         int64
		Scope        ScopeDesc
		SpanID       uint64
		ParentSpanID uint64
		Depth        uint32
	}
	AsyncNamedSpanBeginEvent struct {
		Time         int64
		Scope        ScopeDesc
		Name         string
		SpanID       uint64
		ParentSpanID uint64
		Depth        uint32
	}
	AsyncNamedSpanEndEvent struct {
		Time         int64
		Scope        ScopeDesc
		Name         string
		SpanID       uint64
		ParentSpanID uint64
		Depth        uint32
	}
)

const (
	udtBeginThreadSpanEvent      = "BeginThreadSpanEvent"
	udtEndThreadSpanEvent        = "EndThreadSpanEvent"
	udtBeginThreadNamedSpanEvent = "BeginThreadNamedSpanEvent"
	udtEndThreadNamedSpanEvent   = "EndThreadNamedSpanEvent"

	udtBeginAsyncSpanEvent      = "BeginAsyncSpanEvent"
	udtEndAsyncSpanEvent        = "EndAsyncSpanEvent"
	udtBeginAsyncNamedSpanEvent = "BeginAsyncNamedSpanEvent"
	udtEndAsyncNamedSpanEvent   = "EndAsyncNamedSpanEvent"
)
