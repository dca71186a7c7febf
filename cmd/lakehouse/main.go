// Command lakehouse runs the analytics core as a long-lived daemon: it
// wires together the catalog, object store, view registry, JIT engine,
// and batch scheduler (C1-C11) and ticks the scheduler on a fixed
// interval until signaled to stop. Its query subcommand builds a C12
// session over the same registry and runs one SQL statement through it.
//
// Grounded on cmd/bd's cobra root command and its PersistentPreRun
// signal-context setup (signal.NotifyContext), simplified down to what
// a scheduler daemon actually needs: no RPC server, no file watcher, no
// parent-process liveness polling, no auto-commit/push machinery — all
// of that is specific to bd's git-synced JSONL workflow and has no
// analog here.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/apache/arrow/go/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/config"
	"github.com/madesroches/micromegas-sub003/internal/jit"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/scheduler"
	"github.com/madesroches/micromegas-sub003/internal/sqlengine"
	"github.com/madesroches/micromegas-sub003/internal/telemetry"
	"github.com/madesroches/micromegas-sub003/internal/view"
	"github.com/madesroches/micromegas-sub003/internal/viewproc"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lakehouse",
	Short: "lakehouse - Micromegas analytics core daemon",
	Long:  `Materializes telemetry into queryable partitions on a recurring schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var queryBegin, queryEnd string

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a single SQL statement against the scheduled view-set tables",
	Long:  `Builds a §4.12 query session over the view registry and runs one statement through it, printing rows as space-aligned columns.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file (optional; env vars and defaults still apply)")
	queryCmd.Flags().StringVar(&queryBegin, "from", "", "window start, RFC3339 (default: --to minus one hour)")
	queryCmd.Flags().StringVar(&queryEnd, "to", "", "window end, RFC3339 (default: now)")
	rootCmd.AddCommand(queryCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lakehouse: %v\n", err)
		os.Exit(1)
	}
}

// env is the set of daemon-lifetime dependencies both the scheduler
// loop and the query subcommand need: catalog, object store, view
// registry, and the JIT engine the query session uses for on-demand
// materialization.
type env struct {
	settings  config.Settings
	cat       *catalog.Catalog
	store     objectstore.Store
	allocator memory.Allocator
	views     *view.Registry
	jit       *jit.Engine
	log       *slog.Logger
}

func newEnv(ctx context.Context) (*env, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := slog.Default()

	cat, err := catalog.Open(ctx, settings.CatalogDSN)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	store, err := openStore(ctx, settings)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	if err := os.MkdirAll(settings.ScratchDir, 0o755); err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating scratch dir %s: %w", settings.ScratchDir, err)
	}

	allocator := memory.NewGoAllocator()
	views := view.NewRegistry()
	if err := registerViewSets(views, cat, store, allocator, settings.ScratchDir, log); err != nil {
		cat.Close()
		return nil, fmt.Errorf("registering view-sets: %w", err)
	}

	return &env{
		settings:  settings,
		cat:       cat,
		store:     store,
		allocator: allocator,
		views:     views,
		jit:       &jit.Engine{Views: views, Catalog: cat},
		log:       log,
	}, nil
}

func run(ctx context.Context) error {
	telemetry.Init("lakehouse")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.cat.Close()

	sched := &scheduler.Scheduler{
		Views:           e.views,
		Catalog:         e.cat,
		Store:           e.store,
		JIT:             e.jit,
		Allocator:       e.allocator,
		LocalDir:        e.settings.ScratchDir,
		SafetyLag:       e.settings.SafetyLag,
		Lookback:        e.settings.Lookback,
		MergeTargetRows: e.settings.MergeTargetRows,
		Concurrency:     e.settings.Concurrency,
		Log:             e.log,
	}

	interval := e.settings.SchedulerInterval
	e.log.Info("lakehouse starting", "scheduler_interval", interval, "object_store_kind", e.settings.ObjectStoreKind)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		start := time.Now()
		if err := sched.Tick(ctx); err != nil {
			e.log.Error("scheduler tick failed", "error", err, "elapsed", time.Since(start))
			return
		}
		e.log.Info("scheduler tick complete", "elapsed", time.Since(start))
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("lakehouse shutting down")
			return nil
		case <-ticker.C:
			tick()
		}
	}
}

// runQuery implements the §4.12 query entrypoint: build a session over
// the current view registry and run one statement through it. This is
// the only caller of sqlengine.BuildSession/Session.Query outside that
// package's own tests.
func runQuery(ctx context.Context, sql string) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.cat.Close()

	end := time.Now().UTC()
	if queryEnd != "" {
		end, err = time.Parse(time.RFC3339, queryEnd)
		if err != nil {
			return fmt.Errorf("parsing --to: %w", err)
		}
	}
	begin := end.Add(-time.Hour)
	if queryBegin != "" {
		begin, err = time.Parse(time.RFC3339, queryBegin)
		if err != nil {
			return fmt.Errorf("parsing --from: %w", err)
		}
	}

	session, err := sqlengine.BuildSession(ctx, e.views, e.cat, e.store, e.jit, e.settings.ScratchDir, begin, end)
	if err != nil {
		return fmt.Errorf("building query session: %w", err)
	}

	schema, iter, err := session.Query(sql)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	defer iter.Close(session.Context)

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	names := make([]string, len(schema))
	for i, c := range schema {
		names[i] = c.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for {
		row, err := iter.Next(session.Context)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func openStore(ctx context.Context, settings config.Settings) (objectstore.Store, error) {
	switch settings.ObjectStoreKind {
	case "", "local":
		return objectstore.NewLocalStore(settings.ObjectStoreDir)
	case "s3":
		return objectstore.NewS3Store(ctx, settings.S3Bucket, settings.S3Endpoint)
	default:
		return nil, fmt.Errorf("unknown object_store_kind %q (want \"local\" or \"s3\")", settings.ObjectStoreKind)
	}
}

// registerViewSets wires the concrete block-source and SQL-derived
// view-sets (§4.7-§4.9) into the registry the scheduler and query
// engine share. log_entries, thread_spans, and async_events are
// per-process (instance id is the stream id, not statically
// enumerable, so they carry no ScheduledInstances and run JIT-only);
// span_duration_stats is scheduled under the "global" instance. Its
// SQLProcessor reads thread_spans under that same instance id, so it
// sees only thread_spans partitions registered as "global" and does
// not combine the per-stream thread_spans partitions.
func registerViewSets(views *view.Registry, cat *catalog.Catalog, store objectstore.Store, allocator memory.Allocator, scratchDir string, log *slog.Logger) error {
	logEntries := &viewproc.BlockFactory{
		ViewSetInfo: model.ViewSetInfo{
			Name:        "log_entries",
			SchemaHash:  "log_entries-v1",
			Source:      model.SourceBlock,
			UpdateGroup: -1,
			SourceGrain: time.Hour,
		},
		Source:    viewproc.LogEntriesSource{},
		Catalog:   cat,
		Store:     store,
		Allocator: allocator,
		LocalDir:  scratchDir,
		Log:       log,
	}

	threadSpans := &viewproc.BlockFactory{
		ViewSetInfo: model.ViewSetInfo{
			Name:        "thread_spans",
			SchemaHash:  "thread_spans-v1",
			Source:      model.SourceBlock,
			UpdateGroup: -1,
			SourceGrain: time.Hour,
		},
		Source:    viewproc.ThreadSpansSource{},
		Catalog:   cat,
		Store:     store,
		Allocator: allocator,
		LocalDir:  scratchDir,
		Log:       log,
	}

	asyncEvents := &viewproc.BlockFactory{
		ViewSetInfo: model.ViewSetInfo{
			Name:        "async_events",
			SchemaHash:  "async_events-v1",
			Source:      model.SourceBlock,
			UpdateGroup: -1,
			SourceGrain: time.Hour,
		},
		Source:    viewproc.AsyncEventsSource{},
		Catalog:   cat,
		Store:     store,
		Allocator: allocator,
		LocalDir:  scratchDir,
		Log:       log,
	}

	spanDurationStats := &viewproc.SQLFactory{
		ViewSetInfo: model.ViewSetInfo{
			Name:               "span_duration_stats",
			SchemaHash:         "span_duration_stats-v1",
			Source:             model.SourceSQL,
			UpdateGroup:        model.UpdateGroupDerived,
			SourceGrain:        time.Hour,
			AllowsGlobal:       true,
			ScheduledInstances: []string{"global"},
		},
		Source:    viewproc.SpanDurationStatsSource{},
		Views:     views,
		Catalog:   cat,
		Store:     store,
		Allocator: allocator,
		LocalDir:  scratchDir,
	}

	for _, f := range []view.Factory{logEntries, threadSpans, asyncEvents, spanDurationStats} {
		if err := views.Register(f); err != nil {
			return err
		}
	}
	return nil
}
