package recordbuilder

import (
	"testing"

	"github.com/apache/arrow/go/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestBuilder_AppendRowAndFinish(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := New(mem, LogSchema())
	defer b.Release()

	require.NoError(t, b.AppendRow(map[string]any{
		"time":       int64(1_700_000_000_000_000_000),
		"process_id": "p1",
		"exe":        "worker",
		"level":      "INFO",
		"target":     "app::main",
		"msg":        "started",
	}))
	require.NoError(t, b.AppendRow(map[string]any{
		"time":       int64(1_700_000_000_500_000_000),
		"process_id": "p1",
		"exe":        "worker",
		"level":      "ERROR",
		"target":     "app::db",
		"msg":        "connection lost",
		"properties": []byte{0, 0, 0, 0},
	}))

	require.Equal(t, 2, b.Len())
	min, max, ok := b.TimeRange()
	require.True(t, ok)
	require.Equal(t, int64(1_700_000_000_000_000_000), min)
	require.Equal(t, int64(1_700_000_000_500_000_000), max)

	rec := b.Finish()
	defer rec.Release()
	require.Equal(t, int64(2), rec.NumRows())
	require.Equal(t, 0, b.Len(), "Finish resets the row counter")
}

func TestBuilder_AppendConstantFillsEveryRow(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := Schema{Columns: []ColumnSpec{
		{Name: "process_id", Kind: KindDictString},
		{Name: "count", Kind: KindInt64},
	}}
	b := New(mem, schema)
	defer b.Release()

	require.NoError(t, b.AppendConstant("process_id", "p1", 3))
	require.NoError(t, b.AppendConstant("count", int64(42), 3))

	rec := b.Finish()
	defer rec.Release()
	require.Equal(t, int64(3), rec.NumRows())
}
