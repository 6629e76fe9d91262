// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface.
//
// Steps run on a bounded pool of goroutines. Every body writes through a
// staging step.Context; its productions reach the shared result store in one
// atomic commit after the body returns without error, so consumers never see
// the partial output of a failed step.
package localexecutor

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/trace"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/executor"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
	"github.com/specialistvlad/buildgraph/internal/scheduler"
	"github.com/specialistvlad/buildgraph/internal/telemetry"
)

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the number of step bodies running at once. Values below
// one select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(e *Executor) {
		e.workers = n
	}
}

// WithReuse carries the productions of the given steps over from a previous
// frozen store instead of running them. The scheduler must be created with
// the same set through scheduler.WithReused.
func WithReuse(previous *resultstore.Store, ids ...string) Option {
	return func(e *Executor) {
		e.previous = previous
		e.reused = append(e.reused, ids...)
	}
}

// WithMetrics records step and build metrics on m instead of telemetry.Default.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTracerProvider emits spans through tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		e.tracer = telemetry.Tracer(tp)
	}
}

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	build     *builder.Graph
	graph     graph.Graph
	scheduler scheduler.Scheduler

	workers  int
	previous *resultstore.Store
	reused   []string
	metrics  *telemetry.Metrics
	tracer   trace.Tracer

	results *resultstore.Store

	mu       sync.Mutex
	failures []*diag.StepFailure
	fatal    *diag.FatalError
}

// New creates a new local executor for the validated graph bg, whose runtime
// topology g is driven by sch.
func New(bg *builder.Graph, g graph.Graph, sch scheduler.Scheduler, opts ...Option) executor.Executor {
	e := &Executor{
		build:     bg,
		graph:     g,
		scheduler: sch,
		metrics:   telemetry.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.tracer == nil {
		e.tracer = telemetry.Tracer(nil)
	}
	return e
}

// Execute implements the executor.Executor interface.
//
// A step contract violation, a SINGLE or FINAL produce the body never
// emitted, is not an ordinary failure: once every running step has drained,
// Execute panics with the *diag.FatalError.
func (e *Executor) Execute(ctx context.Context) (*resultstore.Store, error) {
	logger := ctxlog.FromContext(ctx)
	started := time.Now()
	ctx, span := telemetry.StartBuild(ctx, e.tracer, e.build.Len(), e.build.Fingerprint())

	e.results = resultstore.New()
	e.failures = nil
	e.fatal = nil

	if err := e.replay(ctx); err != nil {
		telemetry.End(span, err)
		return nil, err
	}

	logger.Debug("Starting scheduler.", "steps", e.build.Len(), "workers", e.workers)
	if err := e.scheduler.Start(ctx); err != nil {
		telemetry.End(span, err)
		return nil, fmt.Errorf("starting scheduler: %w", err)
	}
	go func() {
		e.scheduler.Wait()
		e.scheduler.Close()
	}()

	p := pool.New().WithMaxGoroutines(e.workers)
	for n := range e.scheduler.ReadyNodes() {
		p.Go(func() {
			e.runNode(ctx, n)
		})
	}
	p.Wait()

	if e.fatal != nil {
		telemetry.End(span, e.fatal)
		logger.Error("Step broke its produce contract; halting.", "stepID", e.fatal.Step, "items", e.fatal.Items)
		panic(e.fatal)
	}

	if len(e.failures) > 0 {
		err := e.report()
		e.metrics.BuildFinished("failure", time.Since(started))
		telemetry.End(span, err)
		logger.Error("Build failed.", "failed", err.Failed(), "skipped", err.Skipped())
		return nil, err
	}

	e.results.Freeze()
	e.metrics.BuildFinished("success", time.Since(started))
	telemetry.End(span, nil)
	logger.Info("Build finished.", "steps", e.build.Len(), "reused", len(e.reused), "elapsed", time.Since(started))
	return e.results, nil
}

// replay re-commits the productions of reused steps, in rank order, before
// any consumer is dispatched.
func (e *Executor) replay(ctx context.Context) error {
	if len(e.reused) == 0 {
		return nil
	}
	if e.previous == nil {
		return fmt.Errorf("reusing %d step(s) without a previous result store", len(e.reused))
	}
	logger := ctxlog.FromContext(ctx)

	ids := slices.Clone(e.reused)
	slices.SortFunc(ids, func(a, b string) int {
		return e.build.Rank(a) - e.build.Rank(b)
	})
	for _, id := range ids {
		if e.build.Rank(id) < 0 {
			return fmt.Errorf("reused step '%s' is not part of the graph", id)
		}
		ps := e.previous.Productions(id)
		if err := e.results.Replay(resultstore.Origin{Step: id, Rank: e.build.Rank(id)}, ps); err != nil {
			return fmt.Errorf("replaying step '%s': %w", id, err)
		}
		logger.Debug("Reused step productions.", "stepID", id, "productions", len(ps))
	}
	e.metrics.StepsSettled(node.StatusReused, len(ids))
	return nil
}

// report assembles the failures in registration order.
func (e *Executor) report() *diag.ExecutionError {
	failures := slices.Clone(e.failures)
	slices.SortFunc(failures, func(a, b *diag.StepFailure) int {
		return e.build.Rank(a.Step) - e.build.Rank(b.Step)
	})
	return &diag.ExecutionError{Failures: failures}
}
