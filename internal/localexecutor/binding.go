package localexecutor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
	"github.com/specialistvlad/buildgraph/internal/step"
)

var (
	// ErrUndeclared is raised when a body touches an item its step did not
	// declare.
	ErrUndeclared = errors.New("item not declared by step")
	// ErrWrongAccess is raised when a body reads or writes an item through
	// an accessor of another kind, e.g. GetAll on a SIMPLE item.
	ErrWrongAccess = errors.New("accessor does not match item kind")
	// ErrPayload is returned when a produced value is not assignable to the
	// item's payload type.
	ErrPayload = errors.New("value does not match item payload")
	// ErrProducedTwice is returned when a SINGLE or FINAL produce is emitted
	// more than once.
	ErrProducedTwice = errors.New("single produce emitted twice")
)

// binding is the step.Context of one step execution. Reads go straight to
// the shared result store; writes are staged and committed by the executor
// only when the body succeeds.
type binding struct {
	desc    *step.Descriptor
	results *resultstore.Store

	mu     sync.Mutex
	staged []resultstore.Production
	counts map[string]int
	names  map[string]map[string]struct{}
}

var _ step.Context = (*binding)(nil)

func newBinding(desc *step.Descriptor, results *resultstore.Store) *binding {
	return &binding{
		desc:    desc,
		results: results,
		counts:  make(map[string]int),
		names:   make(map[string]map[string]struct{}),
	}
}

func (b *binding) StepID() string {
	return b.desc.ID
}

// consumed panics unless t is a declared consume of the kind the accessor
// serves. Panics inside a body are recovered as step failures.
func (b *binding) consumed(t itemtype.Type, kinds ...itemtype.Kind) {
	c, ok := b.desc.ConsumeOf(t.Name())
	if !ok || !itemtype.Same(c.Type, t) {
		panic(fmt.Errorf("%w: step '%s' reads %s", ErrUndeclared, b.desc.ID, t))
	}
	for _, k := range kinds {
		if t.Kind() == k {
			return
		}
	}
	if len(kinds) > 0 {
		panic(fmt.Errorf("%w: step '%s' reads %s", ErrWrongAccess, b.desc.ID, t))
	}
}

func (b *binding) Get(t itemtype.Type) (any, bool) {
	b.consumed(t, itemtype.KindSimple)
	return b.results.Get(t)
}

func (b *binding) GetAll(t itemtype.Type) []any {
	b.consumed(t, itemtype.KindMulti)
	return b.results.GetAll(t)
}

func (b *binding) GetNamed(t itemtype.Type, name string) (any, bool) {
	b.consumed(t, itemtype.KindNamed)
	return b.results.GetNamed(t, name)
}

func (b *binding) GetNamedAll(t itemtype.Type) map[string]any {
	b.consumed(t, itemtype.KindNamed)
	return b.results.Named(t)
}

func (b *binding) Has(t itemtype.Type) bool {
	b.consumed(t)
	return b.results.Has(t)
}

func (b *binding) Produce(t itemtype.Type, v any) error {
	p, err := b.declared(t)
	if err != nil {
		return err
	}
	switch t.Kind() {
	case itemtype.KindNamed:
		return fmt.Errorf("%w: step '%s' must use ProduceNamed for %s", ErrWrongAccess, b.desc.ID, t)
	case itemtype.KindEmpty:
		if v != nil {
			return fmt.Errorf("%w: %s carries no payload, got %T", ErrPayload, t, v)
		}
	default:
		if !t.Accepts(v) {
			return fmt.Errorf("%w: %s does not accept %T", ErrPayload, t, v)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.count(p); err != nil {
		return err
	}
	b.staged = append(b.staged, resultstore.Production{Type: t, Value: v})
	return nil
}

func (b *binding) ProduceNamed(t itemtype.Type, name string, v any) error {
	p, err := b.declared(t)
	if err != nil {
		return err
	}
	if t.Kind() != itemtype.KindNamed {
		return fmt.Errorf("%w: step '%s' used ProduceNamed for %s", ErrWrongAccess, b.desc.ID, t)
	}
	if !t.Accepts(v) {
		return fmt.Errorf("%w: %s does not accept %T", ErrPayload, t, v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	seen := b.names[t.Name()]
	if seen == nil {
		seen = make(map[string]struct{})
		b.names[t.Name()] = seen
	}
	if _, dup := seen[name]; dup {
		return fmt.Errorf("%w: %s[%q] produced twice by step '%s'", resultstore.ErrDuplicateName, t.Name(), name, b.desc.ID)
	}
	if err := b.count(p); err != nil {
		return err
	}
	seen[name] = struct{}{}
	b.staged = append(b.staged, resultstore.Production{Type: t, Name: name, Value: v})
	return nil
}

func (b *binding) declared(t itemtype.Type) (step.Produce, error) {
	p, ok := b.desc.ProduceOf(t.Name())
	if !ok || !itemtype.Same(p.Type, t) {
		return step.Produce{}, fmt.Errorf("%w: step '%s' produces %s", ErrUndeclared, b.desc.ID, t)
	}
	return p, nil
}

// count must be called with mu held.
func (b *binding) count(p step.Produce) error {
	name := p.Type.Name()
	if p.Modifier != step.Multi && b.counts[name] > 0 {
		return fmt.Errorf("%w: step '%s' already produced %s", ErrProducedTwice, b.desc.ID, name)
	}
	b.counts[name]++
	return nil
}

// seal completes the staged productions once the body returned: EMPTY
// produces are marked implicitly, and the SINGLE or FINAL produces that were
// never emitted are returned.
func (b *binding) seal() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var missing []string
	for _, p := range b.desc.Produces {
		name := p.Type.Name()
		if b.counts[name] > 0 || p.Modifier == step.Multi {
			continue
		}
		if p.Type.Kind() == itemtype.KindEmpty {
			b.counts[name]++
			b.staged = append(b.staged, resultstore.Production{Type: p.Type})
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// productions returns the staged values, minus those of items whose output
// for this step is shadowed by an override.
func (b *binding) productions(shadowed func(item string) bool) []resultstore.Production {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]resultstore.Production, 0, len(b.staged))
	for _, p := range b.staged {
		if shadowed(p.Type.Name()) {
			continue
		}
		out = append(out, p)
	}
	return out
}
