package incremental

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
	"github.com/specialistvlad/buildgraph/internal/session"
)

// Result is the outcome of one iteration of the loop.
type Result struct {
	Plan *Plan
	// Results is nil when the execution failed.
	Results *resultstore.Store
	// Graph holds the final status of every step.
	Graph graph.Graph
}

// Loop retains the store of the last successful execution and reuses it for
// the steps a change does not reach.
//
// A failed iteration keeps the retained store and remembers its rerun set as
// dirty, so those steps run again on the next iteration whatever changed. A
// graph whose fingerprint differs from the retained one forces a full run,
// and a step whose Revision differs from the retained one runs again.
type Loop struct {
	factory session.SessionFactory
	workers int

	mu          sync.Mutex
	previous    *resultstore.Store
	fingerprint uint64
	revisions   map[string]uint64
	dirty       map[string]struct{}
}

// NewLoop creates a loop running sessions from factory.
func NewLoop(factory session.SessionFactory, workers int) *Loop {
	return &Loop{factory: factory, workers: workers, dirty: make(map[string]struct{})}
}

// Run executes every step of bg and retains the result.
func (l *Loop) Run(ctx context.Context, bg *builder.Graph) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.execute(ctx, bg, FullPlan(bg))
}

// Rebuild executes the steps of bg affected by changes, reusing the rest.
func (l *Loop) Rebuild(ctx context.Context, bg *builder.Graph, changes ChangeSet) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.previous == nil {
		logger.Info("No previous build to reuse; running everything.")
		return l.execute(ctx, bg, FullPlan(bg))
	}
	if bg.Fingerprint() != l.fingerprint {
		logger.Info("Build graph changed shape; running everything.")
		return l.execute(ctx, bg, FullPlan(bg))
	}

	dirty := make([]string, 0, len(l.dirty))
	for id := range l.dirty {
		dirty = append(dirty, id)
	}
	for _, d := range bg.Steps() {
		if rev, ok := l.revisions[d.ID]; !ok || rev != d.Revision {
			logger.Debug("Step definition changed.", "step", d.ID)
			dirty = append(dirty, d.ID)
		}
	}
	plan, err := NewPlan(bg, changes, dirty)
	if err != nil {
		return nil, fmt.Errorf("planning rebuild: %w", err)
	}
	logger.Info("Planned rebuild.", "rerun", plan.Rerun, "reused", len(plan.Reuse), "paths", len(changes.Paths), "inputs", len(changes.Inputs))
	return l.execute(ctx, bg, plan)
}

// execute must be called with mu held.
func (l *Loop) execute(ctx context.Context, bg *builder.Graph, plan *Plan) (*Result, error) {
	opts := session.Options{Workers: l.workers}
	if !plan.Full {
		opts.Reused = plan.Reuse
		opts.Previous = l.previous
	}

	s, err := l.factory.NewSession(ctx, bg, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := s.Close(ctx); cerr != nil {
			ctxlog.FromContext(ctx).Warn("Failed to close session.", "error", cerr)
		}
	}()

	exec, err := s.GetExecutor()
	if err != nil {
		return nil, err
	}
	results, err := exec.Execute(ctx)
	res := &Result{Plan: plan, Results: results, Graph: s.Graph()}
	if err != nil {
		for _, id := range plan.Rerun {
			l.dirty[id] = struct{}{}
		}
		if plan.Full {
			l.previous = nil
		}
		return res, err
	}

	l.previous = results
	l.fingerprint = bg.Fingerprint()
	l.revisions = make(map[string]uint64, bg.Len())
	for _, d := range bg.Steps() {
		l.revisions[d.ID] = d.Revision
	}
	clear(l.dirty)
	return res, nil
}

// Previous returns the retained store, nil before the first success.
func (l *Loop) Previous() *resultstore.Store {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.previous
}
