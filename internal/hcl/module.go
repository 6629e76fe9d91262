package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/buildgraph/internal/config"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// valueType is the payload of every plan item.
var valueType = reflect.TypeFor[cty.Value]()

// PlanModule registers the steps of a loaded plan like any Go module.
type PlanModule struct {
	model     *config.Model
	converter config.Converter
	types     map[string]itemtype.Type
}

var _ registry.Module = (*PlanModule)(nil)

// NewPlanModule declares the item types of model. Step bodies evaluate their
// expressions through converter.
func NewPlanModule(model *config.Model, converter config.Converter) *PlanModule {
	m := &PlanModule{model: model, converter: converter, types: make(map[string]itemtype.Type)}
	for name, item := range model.Items {
		m.types[name] = newItemType(item)
	}
	return m
}

func newItemType(item *config.Item) itemtype.Type {
	if item.Kind == itemtype.KindEmpty {
		return itemtype.Empty(item.Name)
	}
	var compare itemtype.CompareFunc
	if item.Ordered {
		compare = compareValues
	}
	return itemtype.New(item.Name, item.Kind, valueType, compare)
}

// compareValues orders strings and numbers; anything else ties, falling back
// to producer rank.
func compareValues(a, b any) int {
	x, y := a.(cty.Value), b.(cty.Value)
	if x.IsNull() || y.IsNull() || !x.IsKnown() || !y.IsKnown() {
		return 0
	}
	switch {
	case x.Type().Equals(cty.Number) && y.Type().Equals(cty.Number):
		return x.AsBigFloat().Cmp(y.AsBigFloat())
	case x.Type().Equals(cty.String) && y.Type().Equals(cty.String):
		return strings.Compare(x.AsString(), y.AsString())
	}
	return 0
}

// Type returns the item type declared for name.
func (m *PlanModule) Type(name string) (itemtype.Type, bool) {
	t, ok := m.types[name]
	return t, ok
}

// Register implements registry.Module.
func (m *PlanModule) Register(r *registry.Registry) {
	for _, s := range m.model.Steps {
		d := &step.Descriptor{ID: s.ID, Override: s.Override, Watches: s.Watches, Revision: s.Revision}
		for _, c := range s.Consumes {
			d.Consumes = append(d.Consumes, step.Consume{Type: m.types[c.Item], Modifier: c.Modifier})
		}
		for _, p := range s.Produces {
			d.Produces = append(d.Produces, step.Produce{Type: m.types[p.Item], Modifier: p.Modifier, Weak: p.Weak})
		}
		d.Body = m.body(s)
		r.Add(d)
	}
}

func (m *PlanModule) body(s *config.Step) step.Body {
	return func(ctx context.Context, c step.Context) error {
		scope := map[string]cty.Value{
			"item": cty.ObjectVal(m.inputs(s, c)),
			"step": cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(c.StepID())}),
		}
		for _, p := range s.Produces {
			if err := m.produce(ctx, c, p, scope); err != nil {
				return fmt.Errorf("producing %s: %w", p.Item, err)
			}
		}
		ctxlog.FromContext(ctx).Debug("Plan step evaluated.", "produces", len(s.Produces))
		return nil
	}
}

// inputs exposes the consumed items as cty values.
func (m *PlanModule) inputs(s *config.Step, c step.Context) map[string]cty.Value {
	vars := make(map[string]cty.Value, len(s.Consumes))
	for _, in := range s.Consumes {
		t := m.types[in.Item]
		switch t.Kind() {
		case itemtype.KindSimple:
			v, ok := c.Get(t)
			if !ok {
				vars[in.Item] = cty.NullVal(cty.DynamicPseudoType)
				continue
			}
			vars[in.Item] = v.(cty.Value)
		case itemtype.KindMulti:
			raw := c.GetAll(t)
			if len(raw) == 0 {
				vars[in.Item] = cty.EmptyTupleVal
				continue
			}
			vals := make([]cty.Value, len(raw))
			for i, v := range raw {
				vals[i] = v.(cty.Value)
			}
			vars[in.Item] = cty.TupleVal(vals)
		case itemtype.KindNamed:
			raw := c.GetNamedAll(t)
			if len(raw) == 0 {
				vars[in.Item] = cty.EmptyObjectVal
				continue
			}
			attrs := make(map[string]cty.Value, len(raw))
			for k, v := range raw {
				attrs[k] = v.(cty.Value)
			}
			vars[in.Item] = cty.ObjectVal(attrs)
		case itemtype.KindEmpty:
			vars[in.Item] = cty.BoolVal(c.Has(t))
		}
	}
	return vars
}

func (m *PlanModule) produce(ctx context.Context, c step.Context, p *config.Produce, scope map[string]cty.Value) error {
	t := m.types[p.Item]
	ty := m.model.Items[p.Item].Type

	switch t.Kind() {
	case itemtype.KindEmpty:
		return c.Produce(t, nil)

	case itemtype.KindSimple:
		v, err := m.value(ctx, p.Value, ty, scope)
		if err != nil {
			return err
		}
		return c.Produce(t, v)

	case itemtype.KindMulti:
		if p.Value != nil {
			v, err := m.value(ctx, p.Value, ty, scope)
			if err != nil {
				return err
			}
			return c.Produce(t, v)
		}
		if p.Values == nil {
			return nil
		}
		all, err := m.converter.Evaluate(ctx, p.Values, scope)
		if err != nil {
			return err
		}
		if all.IsNull() {
			return nil
		}
		if !all.CanIterateElements() || all.Type().IsMapType() || all.Type().IsObjectType() {
			return fmt.Errorf("values must be a list, got %s", all.Type().FriendlyName())
		}
		for it := all.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			v, err := m.converter.Convert(elem, ty)
			if err != nil {
				return err
			}
			if err := c.Produce(t, v); err != nil {
				return err
			}
		}
		return nil

	case itemtype.KindNamed:
		if p.Value != nil {
			nameVal, err := m.converter.Evaluate(ctx, p.Name, scope)
			if err != nil {
				return err
			}
			if nameVal.IsNull() || !nameVal.Type().Equals(cty.String) {
				return fmt.Errorf("name must be a string")
			}
			v, err := m.value(ctx, p.Value, ty, scope)
			if err != nil {
				return err
			}
			return c.ProduceNamed(t, nameVal.AsString(), v)
		}
		if p.Values == nil {
			return nil
		}
		all, err := m.converter.Evaluate(ctx, p.Values, scope)
		if err != nil {
			return err
		}
		if all.IsNull() {
			return nil
		}
		if !all.Type().IsMapType() && !all.Type().IsObjectType() {
			return fmt.Errorf("values must be an object, got %s", all.Type().FriendlyName())
		}
		for it := all.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			v, err := m.converter.Convert(elem, ty)
			if err != nil {
				return err
			}
			if err := c.ProduceNamed(t, key.AsString(), v); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("item %s has no valid kind", p.Item)
}

func (m *PlanModule) value(ctx context.Context, expr hcl.Expression, ty cty.Type, scope map[string]cty.Value) (cty.Value, error) {
	v, err := m.converter.Evaluate(ctx, expr, scope)
	if err != nil {
		return cty.NilVal, err
	}
	return m.converter.Convert(v, ty)
}
