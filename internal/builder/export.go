package builder

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// dotGraph wraps the gonum view of a Graph so it can carry graph-level DOT
// attributes.
type dotGraph struct {
	*simple.DirectedGraph
}

var _ dot.Attributers = (*dotGraph)(nil)

func (g *dotGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return g, nil, nil
}

func (g *dotGraph) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "rankdir", Value: "LR"}}
}

type dotNode struct {
	graph.Node
	name  string
	attrs []encoding.Attribute
}

var _ encoding.Attributer = (*dotNode)(nil)

func (n *dotNode) DOTID() string                    { return n.name }
func (n *dotNode) Attributes() []encoding.Attribute { return n.attrs }

type dotEdge struct {
	graph.Edge
	items []string
}

var _ encoding.Attributer = (*dotEdge)(nil)

func (e *dotEdge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: strings.Join(e.items, ",")}}
}

// view lazily builds the gonum representation of g: one node per step, in
// rank order, and one edge per producer/consumer pair labelled with the
// items that link them.
func (g *Graph) view() *simple.DirectedGraph {
	g.gonumOnce.Do(func() {
		dg := simple.NewDirectedGraph()
		g.gonumIDs = make(map[int64]string, len(g.steps))
		nodes := make(map[string]*dotNode, len(g.steps))
		for i, d := range g.steps {
			n := &dotNode{Node: simple.Node(int64(i)), name: d.ID}
			if d.Override {
				n.attrs = append(n.attrs, encoding.Attribute{Key: "style", Value: "bold"})
			}
			nodes[d.ID] = n
			g.gonumIDs[int64(i)] = d.ID
			dg.AddNode(n)
		}

		edges := make(map[[2]string]*dotEdge)
		var keys [][2]string
		for _, name := range g.itemOrder {
			it := g.items[name]
			producers := it.Producers
			if it.Winner != "" {
				producers = []string{it.Winner}
			}
			for _, c := range it.Consumers {
				for _, p := range producers {
					if p == c {
						continue
					}
					key := [2]string{p, c}
					e, ok := edges[key]
					if !ok {
						e = &dotEdge{Edge: simple.Edge{F: nodes[p], T: nodes[c]}}
						edges[key] = e
						keys = append(keys, key)
					}
					e.items = append(e.items, name)
				}
			}
		}
		for _, k := range keys {
			dg.SetEdge(edges[k])
		}
		g.gonum = dg
	})
	return g.gonum
}

// DOT renders the step graph in Graphviz format. Edges are labelled with
// the items flowing along them.
func (g *Graph) DOT() ([]byte, error) {
	return dot.Marshal(&dotGraph{g.view()}, "buildgraph", "", "  ")
}

// Downstream returns the given steps together with every step that depends
// on them, directly or transitively, in rank order. Unknown IDs are ignored.
func (g *Graph) Downstream(ids ...string) []string {
	view := g.view()
	reached := make(map[string]bool)
	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			reached[g.gonumIDs[n.ID()]] = true
		},
	}
	for _, id := range ids {
		r, ok := g.rank[id]
		if !ok {
			continue
		}
		bfs.Walk(view, view.Node(int64(r)), nil)
	}

	out := make([]string, 0, len(reached))
	for id := range reached {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b string) int { return g.rank[a] - g.rank[b] })
	return out
}
