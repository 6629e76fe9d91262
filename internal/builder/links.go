package builder

import (
	"github.com/specialistvlad/buildgraph/internal/diag"
)

// link adds a producer->consumer edge for every item a step consumes and
// reports every cycle of the resulting graph.
func (s *state) link() {
	for _, d := range s.g.steps {
		s.g.dag.AddNode(d.ID)
	}

	selfCycles := make(map[string]bool)
	for _, name := range s.g.itemOrder {
		it := s.g.items[name]
		producers := s.effectiveProducers(it)
		for _, c := range it.Consumers {
			for _, p := range producers {
				if p == c {
					if !selfCycles[c] {
						selfCycles[c] = true
						s.report(diag.Cycle([]string{c}))
					}
					continue
				}
				// Both ends are known nodes and p != c, AddEdge cannot fail.
				_ = s.g.dag.AddEdge(p, c)
			}
		}
	}

	for _, path := range s.g.dag.FindCycles() {
		s.report(diag.Cycle(path))
	}
}
