// Package partition writes one view's accumulated rows out as a
// parquet file and registers it in the catalog (C6, §4.6): the
// deterministic-with-random-suffix path naming, the source-data hash
// that freshness checks key off of, and the insert-then-on-conflict-
// discard dance that lets concurrent writers race safely.
package partition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// SourceDataHash fingerprints the set of source identifiers (block ids
// for a block-source view, source partition file paths for a SQL-
// derived view) that a partition was built from. Order-independent so
// two builds over the same sources in different enumeration order
// still hash identically, which is what makes the JIT freshness check
// (C10) a simple equality test.
func SourceDataHash(sourceIDs []string) string {
	sorted := append([]string(nil), sourceIDs...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, id := range sorted {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WriteLocal serializes rec to a zstd-compressed parquet file under
// dir, named from the view-set name and instance id plus a random
// suffix so two concurrent writers building the same slot never
// collide on the filename itself — only on the catalog insert.
func WriteLocal(dir string, schema recordbuilder.Schema, viewSetName, viewInstanceID string, rec arrow.Record) (path string, size int64, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("partition: creating dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s-%s-%s.parquet", viewSetName, viewInstanceID, uuid.NewString())
	path = filepath.Join(dir, name)

	jsonSchema, err := parquetJSONSchema(schema)
	if err != nil {
		return "", 0, err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", 0, fmt.Errorf("partition: opening %s: %w", path, err)
	}
	pw, err := writer.NewJSONWriter(jsonSchema, fw, 4)
	if err != nil {
		fw.Close()
		return "", 0, fmt.Errorf("partition: creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	rows, err := recordRows(schema, rec)
	if err != nil {
		pw.WriteStop()
		fw.Close()
		return "", 0, err
	}
	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			pw.WriteStop()
			fw.Close()
			return "", 0, fmt.Errorf("partition: encoding row: %w", err)
		}
		if err := pw.Write(string(encoded)); err != nil {
			pw.WriteStop()
			fw.Close()
			return "", 0, fmt.Errorf("partition: writing row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return "", 0, fmt.Errorf("partition: finalizing: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", 0, fmt.Errorf("partition: closing %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("partition: stat %s: %w", path, err)
	}
	return path, info.Size(), nil
}

// recordRows converts an Arrow record into one map per row, in column
// order, ready for JSON encoding by the parquet writer.
func recordRows(schema recordbuilder.Schema, rec arrow.Record) ([]map[string]any, error) {
	n := int(rec.NumRows())
	rows := make([]map[string]any, n)
	for r := 0; r < n; r++ {
		rows[r] = make(map[string]any, len(schema.Columns))
	}
	for i, col := range schema.Columns {
		values, err := columnValues(col.Kind, rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("partition: column %q: %w", col.Name, err)
		}
		for r := 0; r < n; r++ {
			rows[r][col.Name] = values[r]
		}
	}
	return rows, nil
}

func columnValues(kind recordbuilder.ColumnKind, col arrow.Array) ([]any, error) {
	n := col.Len()
	out := make([]any, n)
	switch kind {
	case recordbuilder.KindInt64:
		a := col.(*array.Int64)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindTimestampNanos:
		a := col.(*array.Timestamp)
		for i := 0; i < n; i++ {
			out[i] = int64(a.Value(i))
		}
	case recordbuilder.KindUint64:
		a := col.(*array.Uint64)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindInt32:
		a := col.(*array.Int32)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindUint32:
		a := col.(*array.Uint32)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindFloat64:
		a := col.(*array.Float64)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindString:
		a := col.(*array.String)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindBinary:
		a := col.(*array.Binary)
		for i := 0; i < n; i++ {
			out[i] = a.Value(i)
		}
	case recordbuilder.KindDictString:
		a := col.(*array.Dictionary)
		values := a.Dictionary().(*array.String)
		for i := 0; i < n; i++ {
			out[i] = values.Value(a.GetValueIndex(i))
		}
	default:
		return nil, fmt.Errorf("unhandled column kind %d", kind)
	}
	return out, nil
}

// Publish uploads the local parquet file to the object store and
// registers it in the catalog. A catalog conflict (another writer won
// the race for the same partition slot) is not an error to the
// caller — the local file and its object-store copy are removed and
// Publish returns nil, matching §4.6's "discard and move on" policy.
//
// If replace is set (the JIT engine rebuilding a partition whose
// source_data_hash went stale, §4.10), the new file is registered with
// ReplacePartition instead: the existing row is overwritten in place
// rather than treated as a winning concurrent writer, and a stale
// object left behind in the store is not deleted here — §3.3 allows an
// in-flight reader to keep serving it until it finishes.
func Publish(ctx context.Context, store objectstore.Store, cat *catalog.Catalog, localPath, objectKey string, meta model.PartitionMeta, replace bool) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("partition: reading %s: %w", localPath, err)
	}
	if err := store.Put(ctx, objectKey, data); err != nil {
		return fmt.Errorf("partition: uploading %s: %w", objectKey, err)
	}

	meta.FilePath = objectKey
	meta.FileSize = int64(len(data))

	if replace {
		if err := cat.ReplacePartition(ctx, meta); err != nil {
			return fmt.Errorf("partition: replacing %s: %w", objectKey, err)
		}
		_ = os.Remove(localPath)
		return nil
	}

	if err := cat.InsertPartition(ctx, meta); err != nil {
		if model.KindOf(err) == model.ErrCatalogConflict {
			_ = store.Delete(ctx, objectKey)
			_ = os.Remove(localPath)
			return nil
		}
		return fmt.Errorf("partition: registering %s: %w", objectKey, err)
	}
	_ = os.Remove(localPath)
	return nil
}
