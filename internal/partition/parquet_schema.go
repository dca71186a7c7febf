package partition

import (
	"encoding/json"
	"fmt"

	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// parquetJSONSchema builds the JSON schema description
// github.com/xitongsys/parquet-go's writer.NewJSONWriter expects: a
// root struct tag plus one field tag per column. Dictionary encoding
// decided at the Arrow level (recordbuilder.KindDictString) has no
// separate declaration here — parquet's own dictionary encoding is
// chosen per-column by the writer's internal heuristics once it sees
// the data, not by the schema.
type parquetField struct {
	Tag string `json:"Tag"`
}

type parquetSchema struct {
	Tag    string         `json:"Tag"`
	Fields []parquetField `json:"Fields"`
}

func parquetJSONSchema(schema recordbuilder.Schema) (string, error) {
	ps := parquetSchema{Tag: "name=root, repetitiontype=REQUIRED"}
	for _, col := range schema.Columns {
		repetition := "REQUIRED"
		if col.Nullable {
			repetition = "OPTIONAL"
		}
		typeTag, err := parquetTypeTag(col.Kind)
		if err != nil {
			return "", fmt.Errorf("partition: column %q: %w", col.Name, err)
		}
		ps.Fields = append(ps.Fields, parquetField{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=%s", col.Name, typeTag, repetition),
		})
	}
	b, err := json.Marshal(ps)
	if err != nil {
		return "", fmt.Errorf("partition: marshaling schema: %w", err)
	}
	return string(b), nil
}

func parquetTypeTag(k recordbuilder.ColumnKind) (string, error) {
	switch k {
	case recordbuilder.KindInt64, recordbuilder.KindTimestampNanos:
		return "type=INT64", nil
	case recordbuilder.KindUint64:
		return "type=INT64, convertedtype=UINT_64", nil
	case recordbuilder.KindInt32:
		return "type=INT32", nil
	case recordbuilder.KindUint32:
		return "type=INT32, convertedtype=UINT_32", nil
	case recordbuilder.KindFloat64:
		return "type=DOUBLE", nil
	case recordbuilder.KindString, recordbuilder.KindDictString:
		return "type=BYTE_ARRAY, convertedtype=UTF8", nil
	case recordbuilder.KindBinary:
		return "type=BYTE_ARRAY", nil
	default:
		return "", fmt.Errorf("unhandled column kind %d", k)
	}
}
