package partition

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// ReadLocal reads every row of a parquet file written by WriteLocal back
// out as plain maps, keyed by column name. It is the read-side
// counterpart the SQL-derived view processor (C9) uses to pull an
// upstream view's already-materialized rows back into memory before
// running a transform query over them.
//
// Passing a nil schema object to parquet-go's reader makes it read rows
// generically off the file's own footer rather than against a
// compile-time Go struct, mirroring WriteLocal's schema-less JSON
// writer on the way in.
func ReadLocal(path string, schema recordbuilder.Schema) ([]map[string]any, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("partition: opening %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 4)
	if err != nil {
		return nil, fmt.Errorf("partition: reading footer of %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	raw, err := pr.ReadByNumber(n)
	if err != nil {
		return nil, fmt.Errorf("partition: reading rows of %s: %w", path, err)
	}

	rows := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		row, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("partition: unexpected row type %T reading %s", r, path)
		}
		filtered := make(map[string]any, len(schema.Columns))
		for _, col := range schema.Columns {
			filtered[col.Name] = row[col.Name]
		}
		rows = append(rows, filtered)
	}
	return rows, nil
}
