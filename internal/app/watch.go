package app

import (
	"context"
	"path"
	"slices"

	"github.com/sourcegraph/conc"

	"github.com/specialistvlad/buildgraph/internal/incremental"
	"github.com/specialistvlad/buildgraph/internal/watch"
)

// Watch runs the build, then rebuilds incrementally after every batch of
// file changes below the watch root until ctx is done. A failed or invalid
// build is reported and the loop keeps waiting for a fix.
func (a *App) Watch(ctx context.Context) error {
	ctx = a.context(ctx)
	if err := a.startHealthcheckServer(); err != nil {
		return err
	}
	defer func() { _ = a.closeHealthcheckServer(ctx) }()

	w, err := watch.New(a.config.WatchRoot, a.config.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	var wg conc.WaitGroup
	defer wg.Wait()
	wg.Go(func() {
		if err := w.Run(ctx); err != nil {
			a.logger.Error("File watcher stopped.", "error", err)
		}
	})

	loop := incremental.NewLoop(a.factory, a.config.Workers)
	a.rebuild(ctx, loop, incremental.ChangeSet{}, false)

	a.logger.Info("👀 Watching for changes...", "root", a.config.WatchRoot)
	for changes := range w.Changes() {
		a.logger.Info("Change detected.", "paths", changes.Paths)
		a.rebuild(ctx, loop, changes, planChanged(changes))
	}
	a.logger.Info("Watch stopped.")
	return nil
}

// rebuild runs one iteration of the loop and reports it. The loop runs
// everything when it has no previous build to reuse.
func (a *App) rebuild(ctx context.Context, loop *incremental.Loop, changes incremental.ChangeSet, reload bool) {
	if reload {
		if err := a.loadPlan(ctx); err != nil {
			a.logger.Error("Plan could not be reloaded.", "error", err)
			return
		}
	}
	bg, err := a.buildGraph(ctx)
	if err != nil {
		_ = a.report(ctx, newReport(ctx, nil, nil, nil, nil, err), err)
		return
	}

	res, err := loop.Rebuild(ctx, bg, changes)
	if res == nil {
		a.logger.Error("Execution could not start.", "error", err)
		return
	}
	a.logger.Info("🏁 Rebuild finished.", "rerun", len(res.Plan.Rerun), "reused", len(res.Plan.Reuse), "failed", err != nil)
	_ = a.report(ctx, newReport(ctx, bg, res.Graph, res.Results, a.config.Targets, err), err)
}

// planChanged reports whether a plan file is among the changed paths.
func planChanged(changes incremental.ChangeSet) bool {
	return slices.ContainsFunc(changes.Paths, func(p string) bool {
		return path.Ext(p) == ".hcl"
	})
}
