package itemtype

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"regexp"
)

// ErrNotLeaf is returned by ValidateLeaf for open-ended payload types.
var ErrNotLeaf = errors.New("type must be a concrete leaf type")

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-/]*$`)

// CompareFunc orders two payload values of the same item type.
type CompareFunc func(a, b any) int

// Type identifies one item type. The zero value is invalid.
//
// Type is a value object; it is safe to copy and to share between
// goroutines. It is not comparable with == because it may carry a
// comparator, use Same instead.
type Type struct {
	name    string
	kind    Kind
	payload reflect.Type
	compare CompareFunc
}

// Simple declares a single-valued item type carrying values of type T.
func Simple[T any](name string) Type {
	return Type{name: name, kind: KindSimple, payload: reflect.TypeFor[T](), compare: comparatorFor[T]()}
}

// Multi declares a multi-valued item type carrying values of type T. If T is
// orderable the aggregated sequence is sorted.
func Multi[T any](name string) Type {
	return Type{name: name, kind: KindMulti, payload: reflect.TypeFor[T](), compare: comparatorFor[T]()}
}

// Named declares a name-keyed item type carrying values of type T.
func Named[T any](name string) Type {
	return Type{name: name, kind: KindNamed, payload: reflect.TypeFor[T](), compare: comparatorFor[T]()}
}

// Empty declares a marker item type without payload.
func Empty(name string) Type {
	return Type{name: name, kind: KindEmpty}
}

// New declares an item type whose payload is only known at runtime, e.g. a
// type declared in a plan file. compare may be nil.
func New(name string, kind Kind, payload reflect.Type, compare CompareFunc) Type {
	return Type{name: name, kind: kind, payload: payload, compare: compare}
}

func (t Type) Name() string          { return t.name }
func (t Type) Kind() Kind            { return t.kind }
func (t Type) Payload() reflect.Type { return t.payload }

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool {
	return t.name == "" && t.kind == KindInvalid && t.payload == nil
}

// Orderable reports whether values of t have a total order.
func (t Type) Orderable() bool {
	return t.compare != nil
}

// Compare orders two payload values. It panics if t is not orderable.
func (t Type) Compare(a, b any) int {
	if t.compare == nil {
		panic(fmt.Sprintf("itemtype: %s is not orderable", t))
	}
	return t.compare(a, b)
}

// Accepts reports whether v can be stored as a value of t.
func (t Type) Accepts(v any) bool {
	if t.kind == KindEmpty {
		return v == nil
	}
	if t.payload == nil {
		return false
	}
	if v == nil {
		switch t.payload.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t.payload)
}

func (t Type) String() string {
	if t.payload == nil {
		return fmt.Sprintf("%s(%s)", t.name, t.kind)
	}
	return fmt.Sprintf("%s(%s %s)", t.name, t.kind, t.payload)
}

// Same reports whether a and b denote the same item type.
func Same(a, b Type) bool {
	return a.name == b.name && a.kind == b.kind && a.payload == b.payload
}

// Classify returns the cardinality kind of t.
func Classify(t Type) Kind {
	return t.kind
}

// ValidateLeaf checks that t is a well formed, concrete item type.
func ValidateLeaf(t Type) error {
	if !namePattern.MatchString(t.name) {
		return fmt.Errorf("invalid item type name %q", t.name)
	}
	if !t.kind.Valid() {
		return fmt.Errorf("item type %q has no valid kind", t.name)
	}
	if t.kind == KindEmpty {
		if t.payload != nil {
			return fmt.Errorf("item type %q is EMPTY but declares payload %s", t.name, t.payload)
		}
		return nil
	}
	if t.payload == nil {
		return fmt.Errorf("item type %q: %w (no payload)", t.name, ErrNotLeaf)
	}
	if t.payload.Kind() == reflect.Interface {
		return fmt.Errorf("item type %q: %w (%s is an interface)", t.name, ErrNotLeaf, t.payload)
	}
	return nil
}

// comparatorFor derives a total order for T when one exists: either T has a
// Compare(T) int method, or its underlying kind is a string or a number.
func comparatorFor[T any]() CompareFunc {
	var zero T
	if _, ok := any(zero).(interface{ Compare(T) int }); ok {
		return func(a, b any) int {
			return any(a).(interface{ Compare(T) int }).Compare(b.(T))
		}
	}

	rt := reflect.TypeFor[T]()
	switch rt.Kind() {
	case reflect.String:
		return func(a, b any) int {
			return cmp.Compare(reflect.ValueOf(a).String(), reflect.ValueOf(b).String())
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b any) int {
			return cmp.Compare(reflect.ValueOf(a).Int(), reflect.ValueOf(b).Int())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b any) int {
			return cmp.Compare(reflect.ValueOf(a).Uint(), reflect.ValueOf(b).Uint())
		}
	case reflect.Float32, reflect.Float64:
		return func(a, b any) int {
			return cmp.Compare(reflect.ValueOf(a).Float(), reflect.ValueOf(b).Float())
		}
	}
	return nil
}
