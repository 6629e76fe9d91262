package builder

import (
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// selectTargets keeps the steps needed to produce the target items, walking
// consumes backwards from the targets. A step is pulled in only by a
// non-weak produce of a needed item.
func (s *state) selectTargets(descs []*step.Descriptor, targets []string) []*step.Descriptor {
	producers := make(map[string][]*step.Descriptor)
	for _, d := range descs {
		for _, p := range d.Produces {
			if p.Weak {
				continue
			}
			producers[p.Type.Name()] = append(producers[p.Type.Name()], d)
		}
	}

	keep := make(map[string]bool)
	needed := make(map[string]bool)
	queue := make([]string, 0, len(targets))
	for _, t := range targets {
		if needed[t] {
			continue
		}
		if len(producers[t]) == 0 {
			s.report(diag.Errorf(diag.KindUnknownTarget, nil, []string{t}, "no step produces target item '%s'", t))
			continue
		}
		needed[t] = true
		queue = append(queue, t)
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		for _, d := range producers[item] {
			if keep[d.ID] {
				continue
			}
			keep[d.ID] = true
			for _, c := range d.Consumes {
				name := c.Type.Name()
				if !needed[name] {
					needed[name] = true
					queue = append(queue, name)
				}
			}
		}
	}

	out := make([]*step.Descriptor, 0, len(keep))
	for _, d := range descs {
		if keep[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
