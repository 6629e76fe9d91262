package incremental

import (
	"github.com/specialistvlad/buildgraph/internal/builder"
)

// Plan splits the steps of a graph into those that run and those whose
// previous productions are reused. Both lists are in rank order.
type Plan struct {
	Rerun []string
	Reuse []string
	// Full is set when nothing could be reused, e.g. on the first run.
	Full bool
}

// FullPlan reruns every step of bg.
func FullPlan(bg *builder.Graph) *Plan {
	p := &Plan{Full: true}
	for _, d := range bg.Steps() {
		p.Rerun = append(p.Rerun, d.ID)
	}
	return p
}

// NewPlan computes the rerun set for changes: every sensitive step, every
// step listed in dirty that still exists, and everything downstream of
// them. The rest is reused. Since the rerun set is closed downstream, every
// producer of a reused step is reused too.
func NewPlan(bg *builder.Graph, changes ChangeSet, dirty []string) (*Plan, error) {
	var seeds []string
	for _, d := range bg.Steps() {
		ok, err := Sensitive(d, changes)
		if err != nil {
			return nil, err
		}
		if ok {
			seeds = append(seeds, d.ID)
		}
	}
	seeds = append(seeds, dirty...)

	rerun := bg.Downstream(seeds...)
	selected := make(map[string]bool, len(rerun))
	for _, id := range rerun {
		selected[id] = true
	}

	p := &Plan{Rerun: rerun}
	for _, d := range bg.Steps() {
		if !selected[d.ID] {
			p.Reuse = append(p.Reuse, d.ID)
		}
	}
	return p, nil
}
