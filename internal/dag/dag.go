package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrCycle is returned by TopoLayers and DetectCycles when the graph is not
// acyclic.
var ErrCycle = errors.New("cycle detected")

// Graph is a collection of nodes and their dependencies. All operations are
// concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []*node
}

// node is un-exported so callers go through the string-ID API.
type node struct {
	id   string
	rank int
	// deps holds the predecessors, dependents the successors.
	deps       map[string]*node
	dependents map[string]*node
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	n := &node{
		id:         id,
		rank:       len(g.order),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	g.order = append(g.order, n)
}

// AddEdge records that toID depends on fromID.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns every node ID in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]string, len(g.order))
	for i, n := range g.order {
		ids[i] = n.id
	}
	return ids
}

// Dependencies returns the direct predecessors of id in insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(sorted(n.deps)), nil
}

// Dependents returns the direct successors of id in insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(sorted(n.dependents)), nil
}

// DetectCycles returns an error describing the first cycle found, or nil.
func (g *Graph) DetectCycles() error {
	cycles := g.FindCycles()
	if len(cycles) == 0 {
		return nil
	}
	closed := append(slices.Clone(cycles[0]), cycles[0][0])
	return fmt.Errorf("%w: %s", ErrCycle, strings.Join(closed, " -> "))
}

// FindCycles returns the cycles closed by a back edge during a depth-first
// walk in insertion order: at least one cycle per strongly connected
// component, not every elementary cycle. Every cycle is rotated to start at
// its earliest inserted node and lists each member once.
func (g *Graph) FindCycles() [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.order))
	onStack := make(map[string]int, len(g.order))
	var stack []*node
	var cycles [][]string
	seen := make(map[string]struct{})

	var visit func(n *node)
	visit = func(n *node) {
		color[n.id] = gray
		onStack[n.id] = len(stack)
		stack = append(stack, n)

		for _, next := range sorted(n.dependents) {
			switch color[next.id] {
			case white:
				visit(next)
			case gray:
				cycle := canonical(stack[onStack[next.id]:])
				key := strings.Join(cycle, "\x00")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		color[n.id] = black
	}

	for _, n := range g.order {
		if color[n.id] == white {
			visit(n)
		}
	}
	return cycles
}

// TopoLayers groups nodes into waves using Kahn's algorithm: every node of a
// layer depends only on nodes of earlier layers. Nodes within a layer keep
// insertion order.
func (g *Graph) TopoLayers() ([][]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	inDeg := make(map[string]int, len(g.order))
	var queue []*node
	for _, n := range g.order {
		inDeg[n.id] = len(n.deps)
		if len(n.deps) == 0 {
			queue = append(queue, n)
		}
	}

	var layers [][]string
	processed := 0
	for len(queue) > 0 {
		layer := make([]string, 0, len(queue))
		var next []*node
		for _, n := range queue {
			layer = append(layer, n.id)
			processed++
			for _, d := range sorted(n.dependents) {
				inDeg[d.id]--
				if inDeg[d.id] == 0 {
					next = append(next, d)
				}
			}
		}
		slices.SortFunc(next, func(a, b *node) int { return a.rank - b.rank })
		layers = append(layers, layer)
		queue = next
	}

	if processed != len(g.order) {
		return nil, fmt.Errorf("%w: layered %d of %d nodes", ErrCycle, processed, len(g.order))
	}
	return layers, nil
}

func sorted(m map[string]*node) []*node {
	out := make([]*node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *node) int { return a.rank - b.rank })
	return out
}

func ids(ns []*node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.id
	}
	return out
}

// canonical rotates a cycle so it starts at its lowest-ranked member.
func canonical(path []*node) []string {
	start := 0
	for i, n := range path {
		if n.rank < path[start].rank {
			start = i
		}
	}
	out := make([]string, 0, len(path))
	for i := range path {
		out = append(out, path[(start+i)%len(path)].id)
	}
	return out
}
