package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// Module is the interface every extension implements to contribute steps.
type Module interface {
	Register(r *Registry)
}

// Registry holds the descriptors registered for one build invocation, in
// registration order.
type Registry struct {
	mu    sync.Mutex
	steps []*step.Descriptor
	ids   map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// Add records d and assigns its rank. It panics on a malformed or duplicate
// step ID, which is a programming error in the contributing module.
func (r *Registry) Add(d *step.Descriptor) *step.Descriptor {
	if d == nil {
		panic("registry: nil step descriptor")
	}
	addr, err := nodeid.Parse(d.ID)
	if err != nil {
		panic(fmt.Sprintf("registry: invalid step id: %v", err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := addr.String()
	if _, exists := r.ids[id]; exists {
		panic(fmt.Sprintf("step with id '%s' already registered", id))
	}
	d.ID = id
	d.Rank = len(r.steps)
	r.ids[id] = struct{}{}
	r.steps = append(r.steps, d)
	slog.Debug("Registered build step.", "step", id, "rank", d.Rank, "consumes", len(d.Consumes), "produces", len(d.Produces))
	return d
}

// Install runs Register for each module in order.
func (r *Registry) Install(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Descriptors returns the registered descriptors in registration order. The
// slice is a copy; the descriptors are shared.
func (r *Registry) Descriptors() []*step.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.steps)
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}
