package view

import (
	"context"
	"testing"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	info model.ViewSetInfo
}

func (f stubFactory) Info() model.ViewSetInfo { return f.info }

func (f stubFactory) NewInstance(ctx context.Context, instanceID string) (View, error) {
	return nil, nil
}

type stubView struct{}

func (stubView) DescribeSchema() recordbuilder.Schema { return recordbuilder.Schema{} }
func (stubView) MakeBatchPartitionSpec(ctx context.Context, window model.InsertRange) (PartitionSpec, bool, error) {
	return PartitionSpec{}, false, nil
}
func (stubView) Build(ctx context.Context, spec PartitionSpec) (model.PartitionMeta, error) {
	return model.PartitionMeta{}, nil
}
func (stubView) JITUpdate(ctx context.Context, t time.Time) (model.PartitionMeta, error) {
	return model.PartitionMeta{}, nil
}
func (stubView) BuildTimeFilter(begin, end time.Time) Predicate { return Predicate{} }

func TestRegistry_RegisterGetAll(t *testing.T) {
	r := NewRegistry()
	log := stubFactory{info: model.ViewSetInfo{Name: "log_entries", UpdateGroup: model.UpdateGroupPrimary}}
	jit := stubFactory{info: model.ViewSetInfo{Name: "async_events", UpdateGroup: -1}}

	require.NoError(t, r.Register(log))
	require.NoError(t, r.Register(jit))

	require.Equal(t, log, r.Get("log_entries"))
	require.Nil(t, r.Get("missing"))
	require.Len(t, r.All(), 2)
}

func TestRegistry_RegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	f := stubFactory{info: model.ViewSetInfo{Name: "log_entries"}}
	require.NoError(t, r.Register(f))
	require.Error(t, r.Register(f))
}

func TestRegistry_ScheduledExcludesJITOnly(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubFactory{info: model.ViewSetInfo{Name: "scheduled", UpdateGroup: model.UpdateGroupFoundation}}))
	require.NoError(t, r.Register(stubFactory{info: model.ViewSetInfo{Name: "jit_only", UpdateGroup: -1}}))

	scheduled := r.Scheduled()
	require.Len(t, scheduled, 1)
	require.Equal(t, "scheduled", scheduled[0].Info().Name)
}
