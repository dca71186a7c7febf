package viewproc

import (
	"testing"

	"github.com/madesroches/micromegas-sub003/internal/block"
	"github.com/stretchr/testify/require"
)

func TestPairThreadSpans_SimpleBeginEnd(t *testing.T) {
	v := block.NewThreadVisitor()
	v.Begins = append(v.Begins, block.ThreadSpanBeginEvent{Time: 1000, Scope: block.ScopeDesc{Name: "f", Target: "t", File: "f.rs", Line: 1}})
	v.Ends = append(v.Ends, block.ThreadSpanEndEvent{Time: 5000, Scope: block.ScopeDesc{Name: "f", Target: "t", File: "f.rs", Line: 1}})

	spans := pairThreadSpans(v)
	require.Len(t, spans, 1)
	require.Equal(t, int64(1000), spans[0].beginTick)
	require.Equal(t, int64(5000), spans[0].endTick)
	require.Equal(t, "f", spans[0].name)
}

func TestPairThreadSpans_NestedSpansPairLIFO(t *testing.T) {
	v := block.NewThreadVisitor()
	v.Begins = append(v.Begins,
		block.ThreadSpanBeginEvent{Time: 100, Scope: block.ScopeDesc{Name: "outer"}},
		block.ThreadSpanBeginEvent{Time: 200, Scope: block.ScopeDesc{Name: "inner"}},
	)
	v.Ends = append(v.Ends,
		block.ThreadSpanEndEvent{Time: 300, Scope: block.ScopeDesc{Name: "inner"}},
		block.ThreadSpanEndEvent{Time: 400, Scope: block.ScopeDesc{Name: "outer"}},
	)

	spans := pairThreadSpans(v)
	require.Len(t, spans, 2)
	require.Equal(t, "inner", spans[0].name)
	require.Equal(t, int64(200), spans[0].beginTick)
	require.Equal(t, int64(300), spans[0].endTick)
	require.Equal(t, "outer", spans[1].name)
	require.Equal(t, int64(100), spans[1].beginTick)
	require.Equal(t, int64(400), spans[1].endTick)
}

func TestPairThreadSpans_NamedSpansPairSeparatelyFromAnonymous(t *testing.T) {
	v := block.NewThreadVisitor()
	v.Begins = append(v.Begins, block.ThreadSpanBeginEvent{Time: 1, Scope: block.ScopeDesc{Name: "anon"}})
	v.Ends = append(v.Ends, block.ThreadSpanEndEvent{Time: 2, Scope: block.ScopeDesc{Name: "anon"}})
	v.NamedBegins = append(v.NamedBegins, block.ThreadNamedSpanBeginEvent{Time: 10, Name: "named"})
	v.NamedEnds = append(v.NamedEnds, block.ThreadNamedSpanEndEvent{Time: 20, Name: "named"})

	spans := pairThreadSpans(v)
	require.Len(t, spans, 2)
	names := []string{spans[0].name, spans[1].name}
	require.ElementsMatch(t, []string{"anon", "named"}, names)
}
