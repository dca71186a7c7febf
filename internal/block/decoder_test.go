package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildMixedBlock(t *testing.T) []byte {
	t.Helper()
	b := NewBuilder()
	schema := DefineStandardSchema(b)

	scope := ScopeDesc{Name: "do_work", Target: "app::worker", File: "worker.rs", Line: 42}

	threadBegin := b.NewPayload(schema.BeginThreadSpanEvent)
	thread0 := mustUDT(b, schema.BeginThreadSpanEvent)
	timeField, _ := thread0.FieldByName("time")
	scopeField, _ := thread0.FieldByName("scope")
	putI64(threadBegin, timeField, 1000)
	b.PutScopeDesc(threadBegin, scopeField, schema.ScopeDesc, scope)
	b.AddObject(schema.BeginThreadSpanEvent, threadBegin)

	threadEnd := b.NewPayload(schema.EndThreadSpanEvent)
	putI64(threadEnd, timeField, 2000)
	b.PutScopeDesc(threadEnd, scopeField, schema.ScopeDesc, scope)
	b.AddObject(schema.EndThreadSpanEvent, threadEnd)

	asyncUDT := mustUDT(b, schema.BeginAsyncSpanEvent)
	aTimeField, _ := asyncUDT.FieldByName("time")
	aScopeField, _ := asyncUDT.FieldByName("scope")
	aSpanField, _ := asyncUDT.FieldByName("span_id")
	aParentField, _ := asyncUDT.FieldByName("parent_span_id")
	aDepthField, _ := asyncUDT.FieldByName("depth")

	asyncBegin := b.NewPayload(schema.BeginAsyncSpanEvent)
	putI64(asyncBegin, aTimeField, 1500)
	b.PutScopeDesc(asyncBegin, aScopeField, schema.ScopeDesc, scope)
	putU64(asyncBegin, aSpanField, 7)
	putU64(asyncBegin, aParentField, 0)
	putU32(asyncBegin, aDepthField, 0)
	b.AddObject(schema.BeginAsyncSpanEvent, asyncBegin)

	return b.Build()
}

func mustUDT(b *Builder, idx int) UDT { return b.udts[idx] }

func putI64(payload []byte, f UDTField, v int64) { putU64(payload, f, uint64(v)) }
func putU64(payload []byte, f UDTField, v uint64) {
	for i := 0; i < 8; i++ {
		payload[int(f.Offset)+i] = byte(v >> (8 * i))
	}
}
func putU32(payload []byte, f UDTField, v uint32) {
	for i := 0; i < 4; i++ {
		payload[int(f.Offset)+i] = byte(v >> (8 * i))
	}
}

func TestDecode_ThreadAndAsyncVisitorsAreDisjointAndNonEmpty(t *testing.T) {
	raw := buildMixedBlock(t)

	tv := NewThreadVisitor()
	require.NoError(t, Decode(raw, tv, nil))
	require.Equal(t, 2, tv.Len())
	require.Empty(t, tv.NamedBegins)

	av := NewAsyncVisitor()
	require.NoError(t, Decode(raw, av, nil))
	require.Equal(t, 1, av.Len())

	require.NotZero(t, tv.Len())
	require.NotZero(t, av.Len())

	require.Equal(t, int64(1000), tv.Begins[0].Time)
	require.Equal(t, "do_work", tv.Begins[0].Scope.Name)
	require.Equal(t, "app::worker", tv.Begins[0].Scope.Target)
	require.Equal(t, uint32(42), tv.Begins[0].Scope.Line)

	require.Equal(t, uint64(7), av.Begins[0].SpanID)
	require.Equal(t, uint64(0), av.Begins[0].ParentSpanID)
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	raw := buildMixedBlock(t)
	corrupt := append([]byte{}, raw...)
	corrupt[0] = 'X'
	err := Decode(corrupt, NewThreadVisitor(), nil)
	require.Error(t, err)
	var hdrErr *headerError
	require.ErrorAs(t, err, &hdrErr)
}

func TestDecode_RejectsUnsupportedVersion(t *testing.T) {
	raw := buildMixedBlock(t)
	corrupt := append([]byte{}, raw...)
	corrupt[4] = 99
	err := Decode(corrupt, NewThreadVisitor(), nil)
	require.Error(t, err)
}

func TestDecode_TruncatedBlockIsMalformed(t *testing.T) {
	raw := buildMixedBlock(t)
	err := Decode(raw[:5], NewThreadVisitor(), nil)
	require.Error(t, err)
}

// recordingVisitor fails every object it's asked to decode, to verify
// that a per-object decode error is reported to onObjectError and then
// aborts the whole block (§4.1/§7: a malformed object fails the block,
// it does not get skipped).
type recordingVisitor struct{}

func (r *recordingVisitor) Dispatch(rec *Record) error {
	return errAlwaysFails{}
}

type errAlwaysFails struct{}

func (errAlwaysFails) Error() string { return "always fails" }

func TestDecode_ObjectErrorAbortsBlock(t *testing.T) {
	raw := buildMixedBlock(t)
	v := &recordingVisitor{}
	var reported int
	err := Decode(raw, v, func(e error) { reported++ })
	require.Error(t, err)
	var objErr *objectError
	require.ErrorAs(t, err, &objErr)
	require.Equal(t, 1, reported, "Decode stops at the first failing object")
}
