// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic plan model defined in the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/buildgraph/internal/config"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// translateItem converts an `item` block, parsing its optional type
// expression.
func translateItem(ctx context.Context, b *itemBlock) (*config.Item, error) {
	kind, err := itemtype.ParseKind(b.Kind)
	if err != nil {
		return nil, fmt.Errorf("item '%s': %w", b.Name, err)
	}

	attrs, diags := b.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("item '%s': %w", b.Name, diags)
	}
	item := &config.Item{Name: b.Name, Kind: kind, Type: cty.DynamicPseudoType, Ordered: b.Ordered}
	for name, attr := range attrs {
		if name != "type" {
			return nil, fmt.Errorf("item '%s': unsupported argument %q", b.Name, name)
		}
		if item.Type, err = payloadType(ctx, attr.Expr); err != nil {
			return nil, fmt.Errorf("item '%s': %w", b.Name, err)
		}
	}

	if kind == itemtype.KindEmpty && item.Type != cty.DynamicPseudoType {
		return nil, fmt.Errorf("item '%s': an empty item carries no value and cannot declare a type", b.Name)
	}
	if item.Ordered {
		if kind != itemtype.KindMulti {
			return nil, fmt.Errorf("item '%s': only multi items can be ordered", b.Name)
		}
		switch item.Type {
		case cty.String, cty.Number, cty.DynamicPseudoType:
		default:
			return nil, fmt.Errorf("item '%s': values of type %s have no order", b.Name, item.Type.FriendlyName())
		}
	}
	return item, nil
}

// translateStep converts a `step` block. Every referenced item must be
// declared.
func translateStep(b *stepBlock, items map[string]*config.Item) (*config.Step, error) {
	s := &config.Step{ID: b.ID, Override: b.Override, Watches: b.Watch}

	for _, cb := range b.Consumes {
		if _, ok := items[cb.Item]; !ok {
			return nil, fmt.Errorf("step '%s' consumes undeclared item '%s'", b.ID, cb.Item)
		}
		m, err := step.ParseConsumeModifier(cb.Modifier)
		if err != nil {
			return nil, fmt.Errorf("step '%s', consume '%s': %w", b.ID, cb.Item, err)
		}
		s.Consumes = append(s.Consumes, &config.Consume{Item: cb.Item, Modifier: m})
	}

	for _, pb := range b.Produces {
		item, ok := items[pb.Item]
		if !ok {
			return nil, fmt.Errorf("step '%s' produces undeclared item '%s'", b.ID, pb.Item)
		}
		p, err := translateProduce(pb, item)
		if err != nil {
			return nil, fmt.Errorf("step '%s', produce '%s': %w", b.ID, pb.Item, err)
		}
		s.Produces = append(s.Produces, p)
	}
	s.Revision = revision(b, items)
	return s, nil
}

// revision hashes the source of a step block together with the declarations
// of the items it touches, so editing either one changes it.
func revision(b *stepBlock, items map[string]*config.Item) uint64 {
	h := xxhash.New()
	_, _ = h.Write(b.source)
	declare := func(name string) {
		it := items[name]
		_, _ = fmt.Fprintf(h, "\x00%s:%s:%s:%t", it.Name, it.Kind, it.Type.FriendlyName(), it.Ordered)
	}
	for _, cb := range b.Consumes {
		declare(cb.Item)
	}
	for _, pb := range b.Produces {
		declare(pb.Item)
	}
	return h.Sum64()
}

func translateProduce(b *produceBlock, item *config.Item) (*config.Produce, error) {
	attrs, diags := b.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	p := &config.Produce{Item: b.Item}

	for name, attr := range attrs {
		switch name {
		case "modifier":
			var raw string
			if err := staticString(attr, &raw); err != nil {
				return nil, err
			}
			m, err := step.ParseProduceModifier(raw)
			if err != nil {
				return nil, err
			}
			p.Modifier = m
		case "weak":
			v, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			if v.Type() != cty.Bool || v.IsNull() {
				return nil, fmt.Errorf("weak must be a bool")
			}
			p.Weak = v.True()
		case "name":
			p.Name = attr.Expr
		case "value":
			p.Value = attr.Expr
		case "values":
			p.Values = attr.Expr
		default:
			return nil, fmt.Errorf("unsupported argument %q", name)
		}
	}

	switch item.Kind {
	case itemtype.KindEmpty:
		if p.Name != nil || p.Value != nil || p.Values != nil {
			return nil, fmt.Errorf("an empty item carries no value")
		}
	case itemtype.KindSimple:
		if p.Name != nil || p.Values != nil || p.Value == nil {
			return nil, fmt.Errorf("a simple item takes exactly one value")
		}
	case itemtype.KindMulti:
		if p.Name != nil {
			return nil, fmt.Errorf("a multi item has no name")
		}
	case itemtype.KindNamed:
		if p.Value != nil && p.Name == nil {
			return nil, fmt.Errorf("a named value needs a name")
		}
	}
	if p.Value != nil && p.Values != nil {
		return nil, fmt.Errorf("value and values are mutually exclusive")
	}
	return p, nil
}

func staticString(attr *hcl.Attribute, out *string) error {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return diags
	}
	if v.Type() != cty.String || v.IsNull() {
		return fmt.Errorf("%s must be a string", attr.Name)
	}
	*out = v.AsString()
	return nil
}
