package partition

import (
	"encoding/json"
	"testing"

	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/stretchr/testify/require"
)

func TestSourceDataHash_OrderIndependent(t *testing.T) {
	a := SourceDataHash([]string{"block-1", "block-2", "block-3"})
	b := SourceDataHash([]string{"block-3", "block-1", "block-2"})
	require.Equal(t, a, b)
}

func TestSourceDataHash_DifferentSetsDiffer(t *testing.T) {
	a := SourceDataHash([]string{"block-1", "block-2"})
	b := SourceDataHash([]string{"block-1", "block-3"})
	require.NotEqual(t, a, b)
}

func TestSourceDataHash_Empty(t *testing.T) {
	require.NotEmpty(t, SourceDataHash(nil))
}

func TestParquetJSONSchema_TagsEveryLogSchemaColumn(t *testing.T) {
	schema := recordbuilder.LogSchema()
	raw, err := parquetJSONSchema(schema)
	require.NoError(t, err)

	var parsed parquetSchema
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))
	require.Len(t, parsed.Fields, len(schema.Columns))
	for i, col := range schema.Columns {
		require.Contains(t, parsed.Fields[i].Tag, "name="+col.Name)
	}
}

func TestParquetJSONSchema_NullableBecomesOptional(t *testing.T) {
	schema := recordbuilder.LogSchema() // "properties" and "process_properties" are Nullable
	raw, err := parquetJSONSchema(schema)
	require.NoError(t, err)
	require.Contains(t, raw, "name=properties, type=BYTE_ARRAY, repetitiontype=OPTIONAL")
	require.Contains(t, raw, "name=msg, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=REQUIRED")
}
