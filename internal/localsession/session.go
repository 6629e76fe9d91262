// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/executor"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/inmemorystore"
	"github.com/specialistvlad/buildgraph/internal/inmemorytopology"
	"github.com/specialistvlad/buildgraph/internal/localexecutor"
	"github.com/specialistvlad/buildgraph/internal/scheduler"
	"github.com/specialistvlad/buildgraph/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	// ExecutorOptions are appended to the options derived from
	// session.Options, e.g. a dedicated metrics registry.
	ExecutorOptions []localexecutor.Option
}

// NewSession creates and configures a new local session.
func (f *SessionFactory) NewSession(ctx context.Context, bg *builder.Graph, opts session.Options) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating local session.", "steps", bg.Len(), "workers", opts.Workers, "reused", len(opts.Reused))

	topoStore := inmemorytopology.New()
	if err := graph.Load(ctx, topoStore, bg); err != nil {
		return nil, fmt.Errorf("loading execution graph: %w", err)
	}
	g := graph.New(topoStore, inmemorystore.New())
	sched := scheduler.New(g, scheduler.WithReused(opts.Reused...))

	execOpts := []localexecutor.Option{localexecutor.WithWorkers(opts.Workers)}
	if len(opts.Reused) > 0 {
		execOpts = append(execOpts, localexecutor.WithReuse(opts.Previous, opts.Reused...))
	}
	execOpts = append(execOpts, f.ExecutorOptions...)

	return &Session{
		graph:    g,
		executor: localexecutor.New(bg, g, sched, execOpts...),
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	graph    graph.Graph
	executor executor.Executor
}

// GetExecutor returns the executor that was created and wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Graph returns the runtime graph the executor drives.
func (s *Session) Graph() graph.Graph {
	return s.graph
}

// Close uses the provided context for logging during cleanup.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.")
	return nil
}
