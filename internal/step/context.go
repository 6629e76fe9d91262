package step

import (
	"fmt"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
)

// Context is the invocation context handed to a step body. It is bound to
// the consumes and produces of a single step execution.
type Context interface {
	// StepID returns the identifier of the executing step.
	StepID() string

	// Get returns the value of a consumed SIMPLE item.
	Get(t itemtype.Type) (any, bool)
	// GetAll returns the aggregated values of a consumed MULTI item. The
	// result is empty, never nil, when nothing was produced.
	GetAll(t itemtype.Type) []any
	// GetNamed returns one value of a consumed NAMED item.
	GetNamed(t itemtype.Type, name string) (any, bool)
	// GetNamedAll returns every value of a consumed NAMED item.
	GetNamedAll(t itemtype.Type) map[string]any
	// Has reports whether a consumed item, of any kind, was produced.
	Has(t itemtype.Type) bool

	// Produce contributes a value for a SIMPLE or MULTI item, or marks an
	// EMPTY item (v must be nil).
	Produce(t itemtype.Type, v any) error
	// ProduceNamed contributes a value for a NAMED item.
	ProduceNamed(t itemtype.Type, name string, v any) error
}

// Value is the typed form of Context.Get.
func Value[T any](c Context, t itemtype.Type) (T, bool) {
	var zero T
	v, ok := c.Get(t)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("step: item %s holds %T, not %T", t.Name(), v, zero))
	}
	return typed, true
}

// Values is the typed form of Context.GetAll.
func Values[T any](c Context, t itemtype.Type) []T {
	raw := c.GetAll(t)
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(T))
	}
	return out
}

// NamedValue is the typed form of Context.GetNamed.
func NamedValue[T any](c Context, t itemtype.Type, name string) (T, bool) {
	var zero T
	v, ok := c.GetNamed(t, name)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// NamedValues is the typed form of Context.GetNamedAll.
func NamedValues[T any](c Context, t itemtype.Type) map[string]T {
	raw := c.GetNamedAll(t)
	out := make(map[string]T, len(raw))
	for k, v := range raw {
		out[k] = v.(T)
	}
	return out
}
