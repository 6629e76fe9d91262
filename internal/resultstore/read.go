package resultstore

import (
	"maps"
	"slices"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
)

// Get returns the value of a SIMPLE item.
func (s *Store) Get(t itemtype.Type) (any, bool) {
	b := s.lookup(t, itemtype.KindSimple)
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.simple == nil {
		return nil, false
	}
	return b.simple.value, true
}

// GetAll returns the aggregated values of a MULTI item. Orderable values are
// sorted; the rest, and ties, follow producer rank then production order.
// The result is never nil.
func (s *Store) GetAll(t itemtype.Type) []any {
	b := s.lookup(t, itemtype.KindMulti)
	if b == nil {
		return []any{}
	}
	b.mu.Lock()
	entries := slices.Clone(b.entries)
	b.mu.Unlock()

	slices.SortStableFunc(entries, func(x, y entry) int {
		if t.Orderable() {
			if c := t.Compare(x.value, y.value); c != 0 {
				return c
			}
		}
		if x.rank != y.rank {
			return x.rank - y.rank
		}
		return x.seq - y.seq
	})

	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}

// GetNamed returns one value of a NAMED item.
func (s *Store) GetNamed(t itemtype.Type, name string) (any, bool) {
	b := s.lookup(t, itemtype.KindNamed)
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.named[name]
	return e.value, ok
}

// Named returns a copy of every value of a NAMED item.
func (s *Store) Named(t itemtype.Type) map[string]any {
	out := make(map[string]any)
	b := s.lookup(t, itemtype.KindNamed)
	if b == nil {
		return out
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, e := range b.named {
		out[name] = e.value
	}
	return out
}

// Names returns the sorted names present for a NAMED item.
func (s *Store) Names(t itemtype.Type) []string {
	return slices.Sorted(maps.Keys(s.Named(t)))
}

// Has reports whether anything was produced for t.
func (s *Store) Has(t itemtype.Type) bool {
	s.mu.RLock()
	b := s.buckets[t.Name()]
	s.mu.RUnlock()
	if b == nil || !itemtype.Same(b.typ, t) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch t.Kind() {
	case itemtype.KindSimple:
		return b.simple != nil
	case itemtype.KindMulti:
		return len(b.entries) > 0
	case itemtype.KindNamed:
		return len(b.named) > 0
	case itemtype.KindEmpty:
		return b.marked
	}
	return false
}

// Producers returns the steps that contributed to t, in commit order.
func (s *Store) Producers(t itemtype.Type) []string {
	s.mu.RLock()
	b := s.buckets[t.Name()]
	s.mu.RUnlock()
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.producers)
}

// Types returns every item type holding data, sorted by name.
func (s *Store) Types() []itemtype.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []itemtype.Type
	for _, n := range slices.Sorted(maps.Keys(s.buckets)) {
		b := s.buckets[n]
		b.mu.Lock()
		produced := len(b.producers) > 0
		b.mu.Unlock()
		if produced {
			out = append(out, b.typ)
		}
	}
	return out
}

// Value is the typed form of Get.
func Value[T any](s *Store, t itemtype.Type) (T, bool) {
	var zero T
	v, ok := s.Get(t)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Values is the typed form of GetAll.
func Values[T any](s *Store, t itemtype.Type) []T {
	raw := s.GetAll(t)
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(T))
	}
	return out
}

// NamedValue is the typed form of GetNamed.
func NamedValue[T any](s *Store, t itemtype.Type, name string) (T, bool) {
	var zero T
	v, ok := s.GetNamed(t, name)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
