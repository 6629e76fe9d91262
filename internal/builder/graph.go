package builder

import (
	"slices"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/dag"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
	"gonum.org/v1/gonum/graph/simple"
)

// Item is the resolved view of one item type in the graph.
type Item struct {
	Type itemtype.Type
	// Producers and Consumers are step IDs in registration order.
	Producers []string
	Consumers []string
	// Sealer is the FINAL producer, if any.
	Sealer string
	// Winner is the override producer of a contested SIMPLE item, if any.
	Winner string
}

// Graph is the validated, immutable step graph of one build.
type Graph struct {
	steps []*step.Descriptor
	byID  map[string]*step.Descriptor
	rank  map[string]int

	items     map[string]*Item
	itemOrder []string

	dag      *dag.Graph
	shadowed map[string]map[string]string // step -> item -> winner
	layers   [][]string

	diagnostics []*diag.Diagnostic
	fingerprint uint64

	gonumOnce sync.Once
	gonum     *simple.DirectedGraph
	gonumIDs  map[int64]string
}

// Steps returns the descriptors of the graph in registration order.
func (g *Graph) Steps() []*step.Descriptor {
	return slices.Clone(g.steps)
}

// Step looks up a descriptor by ID.
func (g *Graph) Step(id string) (*step.Descriptor, bool) {
	d, ok := g.byID[id]
	return d, ok
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	return len(g.steps)
}

// Rank returns the registration rank of a step, or -1.
func (g *Graph) Rank(id string) int {
	r, ok := g.rank[id]
	if !ok {
		return -1
	}
	return r
}

// Item returns the resolved item type with the given name.
func (g *Graph) Item(name string) (*Item, bool) {
	it, ok := g.items[name]
	return it, ok
}

// Items returns every item type referenced by the graph, in first-reference
// order.
func (g *Graph) Items() []*Item {
	out := make([]*Item, len(g.itemOrder))
	for i, name := range g.itemOrder {
		out[i] = g.items[name]
	}
	return out
}

// DependenciesOf returns the producer steps id waits for.
func (g *Graph) DependenciesOf(id string) []string {
	deps, err := g.dag.Dependencies(id)
	if err != nil {
		return nil
	}
	return deps
}

// DependentsOf returns the steps waiting for id.
func (g *Graph) DependentsOf(id string) []string {
	deps, err := g.dag.Dependents(id)
	if err != nil {
		return nil
	}
	return deps
}

// Layers returns the steps grouped into topological waves.
func (g *Graph) Layers() [][]string {
	out := make([][]string, len(g.layers))
	for i, l := range g.layers {
		out[i] = slices.Clone(l)
	}
	return out
}

// Diagnostics returns the non-error findings of the build: warnings and
// informational records such as applied overrides.
func (g *Graph) Diagnostics() []*diag.Diagnostic {
	return slices.Clone(g.diagnostics)
}

// Shadowed reports whether the output of stepID for item is discarded
// because another step overrides it, and returns that step.
func (g *Graph) Shadowed(stepID, item string) (string, bool) {
	winner, ok := g.shadowed[stepID][item]
	return winner, ok
}

// Fingerprint identifies the structure of the graph. Two graphs with the
// same steps, declarations and watches share a fingerprint.
func (g *Graph) Fingerprint() uint64 {
	return g.fingerprint
}
