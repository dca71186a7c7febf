package viewproc

import "github.com/madesroches/micromegas-sub003/internal/recordbuilder"

// SpanDurationStatsSource is a SQL-derived view-set (C9) computing
// per-scope duration statistics over the thread_spans view: count,
// min/max/average duration per (name, target), refreshed each time its
// input window gets a new batch of thread_spans partitions.
type SpanDurationStatsSource struct{}

func (SpanDurationStatsSource) InputViewSetName() string { return "thread_spans" }

func (SpanDurationStatsSource) InputSchema() recordbuilder.Schema {
	return recordbuilder.ThreadSpanSchema()
}

func (SpanDurationStatsSource) Schema() recordbuilder.Schema {
	return recordbuilder.Schema{Columns: []recordbuilder.ColumnSpec{
		{Name: "name", Kind: recordbuilder.KindDictString},
		{Name: "target", Kind: recordbuilder.KindDictString},
		{Name: "call_count", Kind: recordbuilder.KindInt64},
		{Name: "min_duration_ns", Kind: recordbuilder.KindInt64},
		{Name: "max_duration_ns", Kind: recordbuilder.KindInt64},
		{Name: "avg_duration_ns", Kind: recordbuilder.KindFloat64},
	}}
}

func (SpanDurationStatsSource) Query() string {
	return `
		SELECT
			name,
			target,
			COUNT(*) AS call_count,
			MIN(duration_ns) AS min_duration_ns,
			MAX(duration_ns) AS max_duration_ns,
			AVG(duration_ns) AS avg_duration_ns
		FROM input
		GROUP BY name, target
	`
}
