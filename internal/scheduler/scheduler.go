// Package scheduler implements the batch partition scheduler (C11,
// §4.11): a background worker that, each tick, materializes every
// globally-scheduled view instance's recent source-grain windows in
// update-group order and then merges small adjacent partitions into
// larger ones.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/jit"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/partition"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/madesroches/micromegas-sub003/internal/view"

	"github.com/apache/arrow/go/arrow/memory"
)

// DefaultSafetyLag is how far behind "now" a tick stops materializing,
// giving in-flight block uploads time to land before the scheduler
// treats a window as closed.
const DefaultSafetyLag = 2 * time.Minute

// DefaultLookback bounds how far back each tick re-checks for gaps or
// staleness, so a long-dead view instance doesn't force a full-history
// rescan every tick.
const DefaultLookback = 24 * time.Hour

// DefaultMergeTargetRows is the row count a merge pass tries to reach
// before closing a merged partition.
const DefaultMergeTargetRows = 1_000_000

// Scheduler drives C11: per tick, it walks every scheduled view-set's
// instances in update-group order, delegates the actual freshness
// check and (re)build of each source-grain window to the JIT engine
// (C10) — the two share one algorithm, invoked either proactively on a
// schedule or reactively on query — and then folds small adjacent
// partitions together.
type Scheduler struct {
	Views   *view.Registry
	Catalog *catalog.Catalog
	Store   objectstore.Store
	JIT     *jit.Engine

	Allocator memory.Allocator
	LocalDir  string

	SafetyLag       time.Duration
	Lookback        time.Duration
	MergeTargetRows int64
	Concurrency     int

	Log *slog.Logger
}

func (s *Scheduler) safetyLag() time.Duration {
	if s.SafetyLag > 0 {
		return s.SafetyLag
	}
	return DefaultSafetyLag
}

func (s *Scheduler) lookback() time.Duration {
	if s.Lookback > 0 {
		return s.Lookback
	}
	return DefaultLookback
}

func (s *Scheduler) mergeTargetRows() int64 {
	if s.MergeTargetRows > 0 {
		return s.MergeTargetRows
	}
	return DefaultMergeTargetRows
}

func (s *Scheduler) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return 4
}

func (s *Scheduler) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// instanceJob pairs one scheduled view instance with the factory that
// produced it, the unit of work one goroutine in a tick processes.
type instanceJob struct {
	factory    view.Factory
	instanceID string
}

// groupsByOrdinal partitions every scheduled factory's instances by
// UpdateGroup, ascending — the total order §4.11 assigns dependency
// levels to (foundation, primary, derived).
func groupsByOrdinal(factories []view.Factory) []int {
	seen := make(map[int]bool)
	var ordinals []int
	for _, f := range factories {
		g := f.Info().UpdateGroup
		if !seen[g] {
			seen[g] = true
			ordinals = append(ordinals, g)
		}
	}
	sort.Ints(ordinals)
	return ordinals
}

func jobsForOrdinal(factories []view.Factory, ordinal int) []instanceJob {
	var jobs []instanceJob
	for _, f := range factories {
		if f.Info().UpdateGroup != ordinal {
			continue
		}
		for _, instanceID := range f.Info().ScheduledInstances {
			jobs = append(jobs, instanceJob{factory: f, instanceID: instanceID})
		}
	}
	return jobs
}

// Tick runs one full scheduling pass: every scheduled view instance's
// recent window is brought up to date, ordinal by ordinal, waiting for
// an entire ordinal to finish (so its outputs exist) before starting
// the next — a SQL-derived view's update group only begins once every
// view-set it could read from has already run this tick.
func (s *Scheduler) Tick(ctx context.Context) error {
	factories := s.Views.Scheduled()
	for _, ordinal := range groupsByOrdinal(factories) {
		jobs := jobsForOrdinal(factories, ordinal)
		if len(jobs) == 0 {
			continue
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency())
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				return s.runInstance(gctx, job.factory, job.instanceID)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("scheduler: update group %d: %w", ordinal, err)
		}
	}
	return nil
}

func (s *Scheduler) runInstance(ctx context.Context, factory view.Factory, instanceID string) error {
	info := factory.Info()
	end := time.Now().UTC().Add(-s.safetyLag())
	begin := end.Add(-s.lookback())
	if !begin.Before(end) {
		return nil
	}

	built, err := s.JIT.Ensure(ctx, info.Name, instanceID, begin, end)
	if err != nil {
		return fmt.Errorf("scheduler: %s/%s: %w", info.Name, instanceID, err)
	}
	if len(built) == 0 {
		return nil
	}

	if err := s.mergePass(ctx, factory, instanceID, begin, end); err != nil {
		return fmt.Errorf("scheduler: merge %s/%s: %w", info.Name, instanceID, err)
	}
	return nil
}

// mergePass implements §4.11 step 5: adjacent source-grain partitions
// whose combined row count still fits MergeTargetRows are folded into
// one, preserving insert_range contiguity across the merged group.
func (s *Scheduler) mergePass(ctx context.Context, factory view.Factory, instanceID string, begin, end time.Time) error {
	info := factory.Info()
	parts, err := s.Catalog.ListPartitions(ctx, info.Name, instanceID, begin, end)
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return nil
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Insert.Begin.Before(parts[j].Insert.Begin) })

	v, err := factory.NewInstance(ctx, instanceID)
	if err != nil {
		return err
	}

	groups := mergeable(parts, s.mergeTargetRows())
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		if err := s.mergeGroup(ctx, v, info, instanceID, group); err != nil {
			return err
		}
	}
	return nil
}

// mergeable greedily accumulates contiguous partitions (each one's
// Insert.End equal to the next one's Insert.Begin) into groups whose
// total NumRows stays within targetRows, starting a new group whenever
// a gap breaks contiguity or the target would be exceeded.
func mergeable(parts []model.PartitionMeta, targetRows int64) [][]model.PartitionMeta {
	var groups [][]model.PartitionMeta
	var cur []model.PartitionMeta
	var curRows int64
	for _, p := range parts {
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			contiguous := prev.Insert.End.Equal(p.Insert.Begin)
			if !contiguous || curRows+p.NumRows > targetRows {
				groups = append(groups, cur)
				cur = nil
				curRows = 0
			}
		}
		cur = append(cur, p)
		curRows += p.NumRows
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// writeScratch stages downloaded partition bytes under dir so
// partition.ReadLocal, which only knows how to read a local file, can
// load them back for the merge.
func writeScratch(dir, objectKey string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch dir %s: %w", dir, err)
	}
	local := filepath.Join(dir, "merge-input-"+filepath.Base(objectKey))
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", fmt.Errorf("staging %s: %w", objectKey, err)
	}
	return local, nil
}

// mergeGroup downloads every partition in group, concatenates their
// rows, and writes one replacement partition spanning the group's
// combined insert_range. The replacement is registered under the
// first member's key (ReplacePartition); the remaining members are
// deleted outright — not left to coexist, since they are not a
// stale/fresh pair (§3.3) but genuinely superseded rows.
func (s *Scheduler) mergeGroup(ctx context.Context, v view.View, info model.ViewSetInfo, instanceID string, group []model.PartitionMeta) error {
	schema := v.DescribeSchema()

	var rows []map[string]any
	sourceIDs := make([]string, 0, len(group))
	for _, p := range group {
		data, err := s.Store.Get(ctx, p.FilePath)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", p.FilePath, err)
		}
		local, err := writeScratch(s.LocalDir, p.FilePath, data)
		if err != nil {
			return err
		}
		r, err := partition.ReadLocal(local, schema)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p.FilePath, err)
		}
		rows = append(rows, r...)
		sourceIDs = append(sourceIDs, p.FilePath)
	}

	b := recordbuilder.New(s.Allocator, schema)
	defer b.Release()
	for _, row := range rows {
		if err := b.AppendRow(row); err != nil {
			return err
		}
	}
	rec := b.Finish()
	defer rec.Release()
	minNs, maxNs, haveT := b.TimeRange()

	merged := model.InsertRange{Begin: group[0].Insert.Begin, End: group[len(group)-1].Insert.End}
	localPath, _, err := partition.WriteLocal(s.LocalDir, schema, info.Name, instanceID, rec)
	if err != nil {
		return err
	}
	objectKey := fmt.Sprintf("partitions/%s/%s/merged-%s", info.Name, instanceID, merged.Begin.Format("20060102T150405"))

	meta := model.PartitionMeta{
		ViewSetName:    info.Name,
		ViewInstanceID: instanceID,
		SchemaHash:     info.SchemaHash,
		Insert:         merged,
		NumRows:        int64(rec.NumRows()),
		SourceDataHash: partition.SourceDataHash(sourceIDs),
	}
	if haveT {
		meta.EventMin = time.Unix(0, minNs).UTC()
		meta.EventMax = time.Unix(0, maxNs).UTC()
	}
	if err := partition.Publish(ctx, s.Store, s.Catalog, localPath, objectKey, meta, true); err != nil {
		return fmt.Errorf("publishing merged partition: %w", err)
	}

	for _, p := range group[1:] {
		if err := s.Catalog.DeletePartition(ctx, p.Key()); err != nil {
			return fmt.Errorf("retiring %s: %w", p.FilePath, err)
		}
	}
	return nil
}
