package model

import "time"

// InsertRange is the half-open insert-time window `[Begin, End)` a
// partition covers. Two live partitions for the same (view_set,
// instance, schema_hash) must have disjoint, contiguous ranges
// (invariant §3.1).
type InsertRange struct {
	Begin time.Time
	End   time.Time
}

// Overlaps reports whether r and o intersect as half-open intervals.
func (r InsertRange) Overlaps(o InsertRange) bool {
	return r.Begin.Before(o.End) && o.Begin.Before(r.End)
}

// Contains reports whether t falls within [Begin, End).
func (r InsertRange) Contains(t time.Time) bool {
	return !t.Before(r.Begin) && t.Before(r.End)
}

// PartitionMeta is one row of the lakehouse_partitions catalog table
// (the stable public contract, §6). File footer metadata is
// deliberately not part of this struct — it is loaded lazily and keyed
// by FilePath by the query engine's parquet reader factory (§4.12).
type PartitionMeta struct {
	ViewSetName    string
	ViewInstanceID string
	SchemaHash     string
	Insert         InsertRange
	EventMin       time.Time
	EventMax       time.Time
	Updated        time.Time
	FilePath       string
	FileSize       int64
	NumRows        int64
	SourceDataHash string
}

// Key identifies the logical partition slot this row occupies, used for
// the uniqueness constraint at insert time (§4.4, §4.6) and for
// in-memory dedup of stale vs. fresh rows.
type PartitionKey struct {
	ViewSetName    string
	ViewInstanceID string
	SchemaHash     string
	InsertBegin    time.Time
}

// Key returns p's PartitionKey.
func (p *PartitionMeta) Key() PartitionKey {
	return PartitionKey{
		ViewSetName:    p.ViewSetName,
		ViewInstanceID: p.ViewInstanceID,
		SchemaHash:     p.SchemaHash,
		InsertBegin:    p.Insert.Begin,
	}
}

// EventTimeOverlaps reports whether the partition's observed event-time
// extent intersects [begin, end). Used for predicate pushdown (§4.12):
// partitions whose extent misses the query window are skipped entirely.
func (p *PartitionMeta) EventTimeOverlaps(begin, end time.Time) bool {
	if p.NumRows == 0 {
		return false
	}
	return p.EventMin.Before(end) && begin.Before(p.EventMax.Add(time.Nanosecond))
}

// DedupeFresh keeps, for each PartitionKey, only the entry with the
// newest Updated timestamp. This implements invariant §3.3: a stale
// partition may coexist briefly with its replacement; readers prefer
// the newer one.
func DedupeFresh(rows []PartitionMeta) []PartitionMeta {
	best := make(map[PartitionKey]PartitionMeta, len(rows))
	for _, r := range rows {
		k := r.Key()
		cur, ok := best[k]
		if !ok || r.Updated.After(cur.Updated) {
			best[k] = r
		}
	}
	out := make([]PartitionMeta, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	return out
}
