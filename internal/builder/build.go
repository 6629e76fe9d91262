package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/dag"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/step"
)

type options struct {
	targets []string
}

// Option configures Build.
type Option func(*options)

// WithTargets restricts the graph to the steps needed, transitively, to
// produce the named items.
func WithTargets(items ...string) Option {
	return func(o *options) {
		o.targets = append(o.targets, items...)
	}
}

// state carries the findings of one Build call from phase to phase.
type state struct {
	g      *Graph
	result *multierror.Error
	// broken holds the step/item references that failed a structural check
	// and are left out of the later phases.
	broken map[string]map[string]bool
}

func (s *state) report(d *diag.Diagnostic) {
	if d.IsError() {
		s.result = multierror.Append(s.result, d)
		return
	}
	s.g.diagnostics = append(s.g.diagnostics, d)
}

func (s *state) markBroken(stepID, item string) {
	if s.broken[stepID] == nil {
		s.broken[stepID] = make(map[string]bool)
	}
	s.broken[stepID][item] = true
}

func (s *state) isBroken(stepID, item string) bool {
	return s.broken[stepID][item]
}

// Build validates descs and assembles the step graph. The descriptors are
// ordered by their Rank; descriptors sharing a rank keep their slice order.
func Build(ctx context.Context, descs []*step.Descriptor, opts ...Option) (*Graph, error) {
	logger := ctxlog.FromContext(ctx).With("component", "builder")
	logger.Debug("Build: Starting graph construction.", "steps", len(descs))

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &state{
		g: &Graph{
			byID:     make(map[string]*step.Descriptor, len(descs)),
			rank:     make(map[string]int, len(descs)),
			items:    make(map[string]*Item),
			shadowed: make(map[string]map[string]string),
			dag:      dag.New(),
		},
		broken: make(map[string]map[string]bool),
	}

	ordered := slices.Clone(descs)
	slices.SortStableFunc(ordered, func(a, b *step.Descriptor) int { return a.Rank - b.Rank })

	// Phase 0: unique IDs.
	unique := make([]*step.Descriptor, 0, len(ordered))
	seen := make(map[string]bool, len(ordered))
	for _, d := range ordered {
		if d == nil {
			s.report(diag.Errorf(diag.KindMalformedStep, nil, nil, "nil step descriptor"))
			continue
		}
		if d.ID == "" {
			s.report(diag.Errorf(diag.KindMalformedStep, nil, nil, "step without id"))
			continue
		}
		addr, err := nodeid.Parse(d.ID)
		if err != nil {
			s.report(diag.Errorf(diag.KindMalformedStep, []string{d.ID}, nil, "invalid step id: %v", err))
			continue
		}
		// The runtime keys nodes on the canonical address, so `gen[01]` and
		// `gen[1]` would collide there.
		if canonical := addr.String(); canonical != d.ID {
			s.report(diag.Errorf(diag.KindMalformedStep, []string{d.ID}, nil, "step id '%s' is not canonical, use '%s'", d.ID, canonical))
			continue
		}
		if seen[d.ID] {
			s.report(diag.Errorf(diag.KindMalformedStep, []string{d.ID}, nil, "step with id '%s' registered twice", d.ID))
			continue
		}
		seen[d.ID] = true
		unique = append(unique, d)
	}

	// Phase 1: target selection.
	selected := unique
	if len(o.targets) > 0 {
		logger.Debug("Build: Phase 1 - Selecting steps for targets.", "targets", o.targets)
		selected = s.selectTargets(unique, o.targets)
	}
	for i, d := range selected {
		s.g.steps = append(s.g.steps, d)
		s.g.byID[d.ID] = d
		s.g.rank[d.ID] = i
	}

	logger.Debug("Build: Phase 2 - Checking step declarations.")
	s.checkSteps()

	logger.Debug("Build: Phase 3 - Classifying item types.")
	s.classify()

	logger.Debug("Build: Phase 4 - Resolving producers.")
	s.resolveProducers()

	logger.Debug("Build: Phase 5 - Checking consumers.")
	s.checkConsumers()

	logger.Debug("Build: Phase 6 - Linking steps and searching for cycles.")
	s.link()

	if err := s.result.ErrorOrNil(); err != nil {
		ve := &diag.ValidationError{}
		for _, e := range s.result.Errors {
			var d *diag.Diagnostic
			if errors.As(e, &d) {
				ve.Diagnostics = append(ve.Diagnostics, d)
			}
		}
		ve.Diagnostics = append(ve.Diagnostics, s.g.diagnostics...)
		logger.Debug("Build: Validation failed.", "errors", len(s.result.Errors))
		return nil, ve
	}

	layers, err := s.g.dag.TopoLayers()
	if err != nil {
		// link has already reported every cycle; reaching this is a bug.
		return nil, fmt.Errorf("computing layers: %w", err)
	}
	s.g.layers = layers
	s.g.fingerprint = fingerprint(s.g.steps)

	for _, d := range s.g.diagnostics {
		level := slog.LevelInfo
		if d.Severity == diag.SeverityWarning {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Build: "+d.Message, "kind", d.Kind)
	}
	logger.Debug("Build: Graph construction successful.", "steps", s.g.Len(), "layers", len(layers))
	return s.g, nil
}
