package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgraph/internal/incremental"
)

// Run builds the graph, executes it once and writes the report. The returned
// error is the builder's *diag.ValidationError or the executor's
// *diag.ExecutionError when the build did not succeed.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthcheckServer(); err != nil {
		return err
	}
	defer func() { _ = a.closeHealthcheckServer(ctx) }()

	bg, err := a.buildGraph(ctx)
	if err != nil {
		return a.report(ctx, newReport(ctx, nil, nil, nil, nil, err), err)
	}

	if bg.Len() == 0 {
		a.logger.Warn("No steps found in graph, execution not required.")
		return a.report(ctx, newReport(ctx, bg, nil, nil, nil, nil), nil)
	}

	a.logger.Info("🚀 Starting concurrent execution...", "steps", bg.Len(), "workers", a.config.Workers)
	res, err := incremental.NewLoop(a.factory, a.config.Workers).Run(ctx, bg)
	if res == nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.", "failed", err != nil)

	return a.report(ctx, newReport(ctx, bg, res.Graph, res.Results, a.config.Targets, err), err)
}

// Validate builds the graph without running it and reports its diagnostics
// and execution layers.
func (a *App) Validate(ctx context.Context) error {
	ctx = a.context(ctx)
	bg, err := a.buildGraph(ctx)
	if err != nil {
		return a.report(ctx, newReport(ctx, nil, nil, nil, nil, err), err)
	}

	r := newReport(ctx, bg, nil, nil, nil, nil)
	if a.config.Output == "json" {
		return a.report(ctx, r, nil)
	}
	fmt.Fprintf(a.outW, "Build graph is valid: %d steps, %d items.\n", bg.Len(), len(bg.Items()))
	for i, layer := range bg.Layers() {
		fmt.Fprintf(a.outW, "  layer %d: %s\n", i, strings.Join(layer, ", "))
	}
	return a.report(ctx, &Report{Status: StatusSucceeded, Diagnostics: r.Diagnostics}, nil)
}

// Graph writes the validated graph in Graphviz DOT format.
func (a *App) Graph(ctx context.Context) error {
	ctx = a.context(ctx)
	bg, err := a.buildGraph(ctx)
	if err != nil {
		return a.report(ctx, newReport(ctx, nil, nil, nil, nil, err), err)
	}
	out, err := bg.DOT()
	if err != nil {
		return fmt.Errorf("rendering graph: %w", err)
	}
	_, err = fmt.Fprintln(a.outW, string(out))
	return err
}

// report writes r and passes err through.
func (a *App) report(ctx context.Context, r *Report, err error) error {
	if err != nil {
		a.logger.Error("Build did not succeed.", "status", r.Status, "diagnostics", len(r.Diagnostics))
	}
	if werr := r.write(a.outW, a.config.Output); werr != nil {
		a.logger.ErrorContext(ctx, "Failed to write report.", "error", werr)
	}
	return err
}
