package viewproc

import (
	"testing"

	gmstypes "github.com/dolthub/go-mysql-server/sql/types"
	"github.com/madesroches/micromegas-sub003/internal/gmscolumn"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/stretchr/testify/require"
)

func TestGMSColumnType_CoversEveryColumnKind(t *testing.T) {
	require.Equal(t, gmstypes.Int64, gmscolumn.Type(recordbuilder.KindInt64))
	require.Equal(t, gmstypes.Int64, gmscolumn.Type(recordbuilder.KindTimestampNanos))
	require.Equal(t, gmstypes.Uint64, gmscolumn.Type(recordbuilder.KindUint64))
	require.Equal(t, gmstypes.Int32, gmscolumn.Type(recordbuilder.KindInt32))
	require.Equal(t, gmstypes.Uint32, gmscolumn.Type(recordbuilder.KindUint32))
	require.Equal(t, gmstypes.Float64, gmscolumn.Type(recordbuilder.KindFloat64))
	require.Equal(t, gmstypes.Text, gmscolumn.Type(recordbuilder.KindString))
	require.Equal(t, gmstypes.Text, gmscolumn.Type(recordbuilder.KindDictString))
	require.Equal(t, gmstypes.Blob, gmscolumn.Type(recordbuilder.KindBinary))
}

func TestSpanDurationStatsSource_SchemaMatchesQueryColumns(t *testing.T) {
	src := SpanDurationStatsSource{}
	schema := src.Schema()
	names := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.Name
	}
	require.Equal(t, []string{"name", "target", "call_count", "min_duration_ns", "max_duration_ns", "avg_duration_ns"}, names)
	require.Equal(t, "thread_spans", src.InputViewSetName())
}
