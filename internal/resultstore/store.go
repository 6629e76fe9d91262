package resultstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
)

var (
	ErrAlreadySet    = errors.New("item already set")
	ErrDuplicateName = errors.New("duplicate name")
	ErrKindMismatch  = errors.New("item kind mismatch")
	ErrFrozen        = errors.New("result store is frozen")
)

// Origin identifies the step a production comes from. Rank is the step's
// registration rank, used to order values of unorderable MULTI items.
type Origin struct {
	Step string
	Rank int
}

// Production is one value contributed by a step.
type Production struct {
	Type  itemtype.Type
	Name  string // NAMED items only
	Value any
}

// Store holds the produced items of one execution.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	frozen  atomic.Bool

	jmu     sync.Mutex
	journal map[string][]Production
}

// New creates an empty, writable store.
func New() *Store {
	return &Store{
		buckets: make(map[string]*bucket),
		journal: make(map[string][]Production),
	}
}

// Set stores the value of a SIMPLE item.
func (s *Store) Set(o Origin, t itemtype.Type, v any) error {
	return s.Commit(o, []Production{{Type: t, Value: v}})
}

// Append adds one value to a MULTI item.
func (s *Store) Append(o Origin, t itemtype.Type, v any) error {
	return s.Commit(o, []Production{{Type: t, Value: v}})
}

// PutNamed adds one keyed value to a NAMED item.
func (s *Store) PutNamed(o Origin, t itemtype.Type, name string, v any) error {
	return s.Commit(o, []Production{{Type: t, Name: name, Value: v}})
}

// Mark records that an EMPTY item was produced.
func (s *Store) Mark(o Origin, t itemtype.Type) error {
	return s.Commit(o, []Production{{Type: t}})
}

// Commit applies all productions of one step atomically: either every
// production is stored or, on error, none is. Buckets are locked in name
// order so concurrent commits cannot deadlock.
func (s *Store) Commit(o Origin, ps []Production) error {
	s.mustBeWritable(o.Step)
	if len(ps) == 0 {
		return nil
	}

	buckets := make(map[string]*bucket, len(ps))
	for _, p := range ps {
		b, err := s.bucketFor(p.Type)
		if err != nil {
			return err
		}
		buckets[b.typ.Name()] = b
	}
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		buckets[name].mu.Lock()
	}
	defer func() {
		for _, name := range names {
			buckets[name].mu.Unlock()
		}
	}()

	pendingNames := make(map[string]struct{})
	for _, p := range ps {
		if err := buckets[p.Type.Name()].check(o, p, pendingNames); err != nil {
			return err
		}
	}
	for _, p := range ps {
		buckets[p.Type.Name()].apply(o, p)
	}

	s.jmu.Lock()
	s.journal[o.Step] = append(s.journal[o.Step], ps...)
	s.jmu.Unlock()
	return nil
}

// Replay commits the productions another store journaled for the same step.
func (s *Store) Replay(o Origin, ps []Production) error {
	return s.Commit(o, ps)
}

// Productions returns what step contributed, in production order.
func (s *Store) Productions(step string) []Production {
	s.jmu.Lock()
	defer s.jmu.Unlock()
	return slices.Clone(s.journal[step])
}

// Freeze makes the store read-only.
func (s *Store) Freeze() {
	s.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (s *Store) Frozen() bool {
	return s.frozen.Load()
}

func (s *Store) mustBeWritable(step string) {
	if s.frozen.Load() {
		panic(fmt.Errorf("%w: step '%s' produced after execution completed", ErrFrozen, step))
	}
}

func (s *Store) bucketFor(t itemtype.Type) (*bucket, error) {
	s.mu.RLock()
	b, ok := s.buckets[t.Name()]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if b, ok = s.buckets[t.Name()]; !ok {
			b = newBucket(t)
			s.buckets[t.Name()] = b
		}
		s.mu.Unlock()
	}
	if !itemtype.Same(b.typ, t) {
		return nil, fmt.Errorf("%w: %s is stored as %s", ErrKindMismatch, t, b.typ)
	}
	return b, nil
}

func (s *Store) lookup(t itemtype.Type, kind itemtype.Kind) *bucket {
	if t.Kind() != kind {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.buckets[t.Name()]
	if b == nil || !itemtype.Same(b.typ, t) {
		return nil
	}
	return b
}
