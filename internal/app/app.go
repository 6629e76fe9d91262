package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/config"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/hcl"
	"github.com/specialistvlad/buildgraph/internal/localsession"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loader  config.Loader
	modules []registry.Module
	factory session.SessionFactory

	plan       *hcl.PlanModule
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs to logW. When no modules are given the core modules are installed.
//
// The plan files are loaded once here so a broken plan fails before any
// command runs.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		// JSON reports must stay parseable, so printed lines go to the log.
		printOut := outW
		if cfg.Output == "json" {
			printOut = logW
		}
		modules = coreModules(cfg, printOut)
	}

	a := &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loader:  loader,
		modules: modules,
		factory: &localsession.SessionFactory{},
	}
	if err := a.loadPlan(a.context(context.Background())); err != nil {
		return nil, err
	}
	return a, nil
}

// context attaches the app's logger to ctx.
func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// loadPlan reads the plan files into a module registering their steps.
func (a *App) loadPlan(ctx context.Context) error {
	if len(a.config.PlanPaths) == 0 {
		a.plan = nil
		return nil
	}
	model, converter, err := a.loader.Load(ctx, a.config.PlanPaths...)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}
	a.plan = hcl.NewPlanModule(model, converter)
	a.logger.Debug("Plan loaded.", "items", len(model.Items), "steps", len(model.Steps))
	return nil
}

// buildGraph registers every module in a fresh registry and validates the
// resulting graph.
func (a *App) buildGraph(ctx context.Context) (*builder.Graph, error) {
	reg := registry.New()
	reg.Install(a.modules...)
	if a.plan != nil {
		reg.Install(a.plan)
	}
	a.logger.Debug("All modules registered.", "modules", len(a.modules), "steps", reg.Len())

	bg, err := builder.Build(ctx, reg.Descriptors(), builder.WithTargets(a.config.Targets...))
	if err != nil {
		return nil, err
	}
	for _, d := range bg.Diagnostics() {
		level := slog.LevelInfo
		if d.Severity == diag.SeverityWarning {
			level = slog.LevelWarn
		}
		a.logger.Log(ctx, level, "Build graph diagnostic.", "kind", d.Kind, "message", d.Message)
	}
	a.logger.Debug("Build graph validated.", "steps", bg.Len(), "items", len(bg.Items()))
	return bg, nil
}
