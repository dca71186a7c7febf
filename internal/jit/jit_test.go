package jit

import (
	"context"
	"testing"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/partition"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/madesroches/micromegas-sub003/internal/view"
	"github.com/stretchr/testify/require"
)

// stubView lets each test control what MakeBatchPartitionSpec reports
// and records the spec Build was actually called with.
type stubView struct {
	specOK    bool
	sourceIDs []string
	buildMeta model.PartitionMeta
	buildErr  error

	buildSpecs []view.PartitionSpec
}

func (v *stubView) DescribeSchema() recordbuilder.Schema { return recordbuilder.Schema{} }

func (v *stubView) MakeBatchPartitionSpec(ctx context.Context, window model.InsertRange) (view.PartitionSpec, bool, error) {
	if !v.specOK {
		return view.PartitionSpec{}, false, nil
	}
	return view.PartitionSpec{Window: window, SourceIDs: v.sourceIDs}, true, nil
}

func (v *stubView) Build(ctx context.Context, spec view.PartitionSpec) (model.PartitionMeta, error) {
	v.buildSpecs = append(v.buildSpecs, spec)
	return v.buildMeta, v.buildErr
}

func (v *stubView) JITUpdate(ctx context.Context, t time.Time) (model.PartitionMeta, error) {
	return model.PartitionMeta{}, nil
}

func (v *stubView) BuildTimeFilter(begin, end time.Time) view.Predicate { return view.Predicate{} }

func TestSlots_CoversRangeAlignedToGrain(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 2, 5, 0, 0, time.UTC)
	got := slots(begin, end, time.Hour)
	require.Len(t, got, 3)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), got[0].Begin)
	require.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), got[0].End)
	require.Equal(t, got[0].End, got[1].Begin)
	require.Equal(t, got[1].End, got[2].Begin)
	require.True(t, got[2].End.After(end))
}

func TestSlots_EmptyRangeReturnsNothing(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Nil(t, slots(now, now, time.Hour))
	require.Nil(t, slots(now, now.Add(-time.Hour), time.Hour))
}

func TestEnsureSlot_NoSourceDataAndNoPartition_SkipsEntirely(t *testing.T) {
	e := &Engine{}
	v := &stubView{specOK: false}
	meta, built, err := e.ensureSlot(context.Background(), v, model.InsertRange{}, model.PartitionMeta{})
	require.NoError(t, err)
	require.False(t, built)
	require.Equal(t, model.PartitionMeta{}, meta)
	require.Empty(t, v.buildSpecs)
}

func TestEnsureSlot_FreshExistingPartitionIsReused(t *testing.T) {
	e := &Engine{}
	sourceIDs := []string{"block-1", "block-2"}
	v := &stubView{specOK: true, sourceIDs: sourceIDs}
	current := model.PartitionMeta{FilePath: "partitions/p1.parquet", SourceDataHash: partition.SourceDataHash(sourceIDs)}

	meta, built, err := e.ensureSlot(context.Background(), v, model.InsertRange{}, current)
	require.NoError(t, err)
	require.True(t, built)
	require.Equal(t, current, meta)
	require.Empty(t, v.buildSpecs, "fresh partition must not trigger a rebuild")
}

func TestEnsureSlot_StaleExistingPartitionTriggersReplace(t *testing.T) {
	e := &Engine{}
	v := &stubView{
		specOK:    true,
		sourceIDs: []string{"block-1", "block-2", "block-3"},
		buildMeta: model.PartitionMeta{FilePath: "partitions/p2.parquet"},
	}
	current := model.PartitionMeta{
		FilePath:       "partitions/p1.parquet",
		SourceDataHash: partition.SourceDataHash([]string{"block-1", "block-2"}),
	}

	meta, built, err := e.ensureSlot(context.Background(), v, model.InsertRange{}, current)
	require.NoError(t, err)
	require.True(t, built)
	require.Equal(t, "partitions/p2.parquet", meta.FilePath)
	require.Len(t, v.buildSpecs, 1)
	require.True(t, v.buildSpecs[0].Replace, "stale rebuild must ask Build to replace, not insert")
}

func TestEnsureSlot_NoExistingPartitionBuildsFresh(t *testing.T) {
	e := &Engine{}
	v := &stubView{
		specOK:    true,
		sourceIDs: []string{"block-1"},
		buildMeta: model.PartitionMeta{FilePath: "partitions/p1.parquet"},
	}

	meta, built, err := e.ensureSlot(context.Background(), v, model.InsertRange{}, model.PartitionMeta{})
	require.NoError(t, err)
	require.True(t, built)
	require.Equal(t, "partitions/p1.parquet", meta.FilePath)
	require.Len(t, v.buildSpecs, 1)
	require.False(t, v.buildSpecs[0].Replace, "first build for a slot must insert, not replace")
}
