package resultstore

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
)

type entry struct {
	value any
	step  string
	rank  int
	seq   int
}

// bucket holds the values of one item type. mu guards every field but typ.
type bucket struct {
	mu  sync.Mutex
	typ itemtype.Type

	simple    *entry
	entries   []entry
	named     map[string]entry
	marked    bool
	producers []string
	seq       int
}

func newBucket(t itemtype.Type) *bucket {
	b := &bucket{typ: t}
	if t.Kind() == itemtype.KindNamed {
		b.named = make(map[string]entry)
	}
	return b
}

// check validates p against the bucket without changing it. pending tracks
// keys claimed by earlier productions of the same commit.
func (b *bucket) check(o Origin, p Production, pending map[string]struct{}) error {
	if !b.typ.Accepts(p.Value) {
		return fmt.Errorf("%w: step '%s' produced %T for %s", ErrKindMismatch, o.Step, p.Value, b.typ)
	}

	switch b.typ.Kind() {
	case itemtype.KindSimple:
		key := "simple\x00" + b.typ.Name()
		if b.simple != nil {
			return fmt.Errorf("%w: %s was produced by step '%s', step '%s' cannot produce it again", ErrAlreadySet, b.typ.Name(), b.simple.step, o.Step)
		}
		if _, dup := pending[key]; dup {
			return fmt.Errorf("%w: step '%s' produced %s twice", ErrAlreadySet, o.Step, b.typ.Name())
		}
		pending[key] = struct{}{}
	case itemtype.KindNamed:
		if p.Name == "" {
			return fmt.Errorf("step '%s': %s requires a non-empty name", o.Step, b.typ.Name())
		}
		key := "named\x00" + b.typ.Name() + "\x00" + p.Name
		if prev, dup := b.named[p.Name]; dup {
			return fmt.Errorf("%w: %s[%q] was produced by step '%s', step '%s' cannot produce it again", ErrDuplicateName, b.typ.Name(), p.Name, prev.step, o.Step)
		}
		if _, dup := pending[key]; dup {
			return fmt.Errorf("%w: step '%s' produced %s[%q] twice", ErrDuplicateName, o.Step, b.typ.Name(), p.Name)
		}
		pending[key] = struct{}{}
	}
	return nil
}

func (b *bucket) apply(o Origin, p Production) {
	e := entry{value: p.Value, step: o.Step, rank: o.Rank, seq: b.seq}
	b.seq++

	switch b.typ.Kind() {
	case itemtype.KindSimple:
		b.simple = &e
	case itemtype.KindMulti:
		b.entries = append(b.entries, e)
	case itemtype.KindNamed:
		b.named[p.Name] = e
	case itemtype.KindEmpty:
		b.marked = true
	}

	if n := len(b.producers); n == 0 || b.producers[n-1] != o.Step {
		b.producers = append(b.producers, o.Step)
	}
}
