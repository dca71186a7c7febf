package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/view"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	info model.ViewSetInfo
}

func (f stubFactory) Info() model.ViewSetInfo { return f.info }
func (f stubFactory) NewInstance(ctx context.Context, instanceID string) (view.View, error) {
	return nil, nil
}

func TestGroupsByOrdinal_SortsAscendingAndDedupes(t *testing.T) {
	factories := []view.Factory{
		stubFactory{info: model.ViewSetInfo{Name: "log_stats", UpdateGroup: model.UpdateGroupDerived}},
		stubFactory{info: model.ViewSetInfo{Name: "blocks", UpdateGroup: model.UpdateGroupFoundation}},
		stubFactory{info: model.ViewSetInfo{Name: "log_entries", UpdateGroup: model.UpdateGroupPrimary}},
		stubFactory{info: model.ViewSetInfo{Name: "metrics", UpdateGroup: model.UpdateGroupPrimary}},
	}
	require.Equal(t, []int{model.UpdateGroupFoundation, model.UpdateGroupPrimary, model.UpdateGroupDerived}, groupsByOrdinal(factories))
}

func TestJobsForOrdinal_ExpandsScheduledInstances(t *testing.T) {
	factories := []view.Factory{
		stubFactory{info: model.ViewSetInfo{
			Name: "blocks", UpdateGroup: model.UpdateGroupFoundation,
			ScheduledInstances: []string{"global"},
		}},
		stubFactory{info: model.ViewSetInfo{
			Name: "log_entries", UpdateGroup: model.UpdateGroupPrimary,
			ScheduledInstances: []string{"stream-a", "stream-b"},
		}},
	}
	jobs := jobsForOrdinal(factories, model.UpdateGroupPrimary)
	require.Len(t, jobs, 2)
	require.Equal(t, "stream-a", jobs[0].instanceID)
	require.Equal(t, "stream-b", jobs[1].instanceID)

	require.Empty(t, jobsForOrdinal(factories, 9999))
}

func partitionAt(begin, end time.Time, rows int64) model.PartitionMeta {
	return model.PartitionMeta{Insert: model.InsertRange{Begin: begin, End: end}, NumRows: rows}
}

func TestMergeable_GroupsContiguousPartitionsUnderTarget(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hour := time.Hour
	parts := []model.PartitionMeta{
		partitionAt(t0, t0.Add(hour), 100),
		partitionAt(t0.Add(hour), t0.Add(2*hour), 100),
		partitionAt(t0.Add(2*hour), t0.Add(3*hour), 100),
	}
	groups := mergeable(parts, 1000)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 3)
}

func TestMergeable_BreaksOnGapOrOverTarget(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hour := time.Hour
	parts := []model.PartitionMeta{
		partitionAt(t0, t0.Add(hour), 600),
		partitionAt(t0.Add(hour), t0.Add(2*hour), 600), // over target with prev -> new group
		partitionAt(t0.Add(3*hour), t0.Add(4*hour), 100), // gap -> new group
	}
	groups := mergeable(parts, 1000)
	require.Len(t, groups, 3)
	require.Len(t, groups[0], 1)
	require.Len(t, groups[1], 1)
	require.Len(t, groups[2], 1)
}

func TestMergeable_EmptyInputReturnsNoGroups(t *testing.T) {
	require.Empty(t, mergeable(nil, 1000))
}
