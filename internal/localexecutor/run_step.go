package localexecutor

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
	"github.com/specialistvlad/buildgraph/internal/telemetry"
)

// runNode is the body of one pool task: it runs a ready node and reports the
// outcome to the scheduler, which releases or skips its dependents.
func (e *Executor) runNode(ctx context.Context, n *node.Node) {
	ctx = ctxlog.With(ctx, "stepID", n.Key())
	logger := ctxlog.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		logger.Warn("Build cancelled before step started.", "error", err)
		e.fail(ctx, n, err)
		return
	}
	if err := e.graph.MarkRunning(ctx, n.ID); err != nil {
		logger.Error("Failed to mark node running", "error", err)
		e.fail(ctx, n, err)
		return
	}

	logger.Debug("Worker picked up node for execution.")
	e.metrics.StepStarted()
	started := time.Now()
	spanCtx, span := telemetry.StartStep(ctx, e.tracer, n)

	err := e.runStep(spanCtx, n)
	telemetry.End(span, err)

	if err != nil {
		e.metrics.StepFinished(node.StatusFailed, time.Since(started))
		logger.Error("Node execution failed.", "error", err)
		e.fail(ctx, n, err)
		return
	}

	e.metrics.StepFinished(node.StatusDone, time.Since(started))
	logger.Debug("Node execution succeeded.", "elapsed", time.Since(started))
	if err := e.scheduler.Complete(ctx, n); err != nil {
		logger.Error("Failed to complete node", "error", err)
		e.fail(ctx, n, err)
	}
}

// runStep invokes the body and commits what it produced.
func (e *Executor) runStep(ctx context.Context, n *node.Node) error {
	b := newBinding(n.Step, e.results)
	if err := invoke(ctx, n, b); err != nil {
		return err
	}

	if missing := b.seal(); len(missing) > 0 {
		fatal := &diag.FatalError{Step: n.Key(), Items: missing, Reason: "declared produce never fulfilled"}
		e.mu.Lock()
		if e.fatal == nil {
			e.fatal = fatal
		}
		e.mu.Unlock()
		return fatal
	}

	ps := b.productions(func(item string) bool {
		_, shadowed := e.build.Shadowed(n.Key(), item)
		return shadowed
	})
	origin := resultstore.Origin{Step: n.Key(), Rank: e.build.Rank(n.Key())}
	if err := e.results.Commit(origin, ps); err != nil {
		return fmt.Errorf("committing productions: %w", err)
	}
	return nil
}

// invoke runs the body, turning a panic into an error.
func invoke(ctx context.Context, n *node.Node, b *binding) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("step panicked: %w", rerr)
				return
			}
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return n.Step.Body(ctx, b)
}

// fail marks n failed, skips everything downstream and records the root
// failure for the final report.
func (e *Executor) fail(ctx context.Context, n *node.Node, cause error) {
	logger := ctxlog.FromContext(ctx)

	skipped, err := e.scheduler.Fail(ctx, n, cause)
	if err != nil {
		logger.Error("Failed to mark node failed", "error", err)
	}
	slices.SortFunc(skipped, func(a, b string) int {
		return e.build.Rank(a) - e.build.Rank(b)
	})
	e.metrics.StepsSettled(node.StatusSkipped, len(skipped))

	e.mu.Lock()
	e.failures = append(e.failures, &diag.StepFailure{Step: n.Key(), Err: cause, Skipped: skipped})
	e.mu.Unlock()
}
