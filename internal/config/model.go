package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// Model is the unified, format-agnostic representation of a build plan.
type Model struct {
	// Items holds the declared item types by name.
	Items map[string]*Item
	// Steps are in declaration order, which becomes their registration rank.
	Steps []*Step
}

// Item is the format-agnostic representation of an `item` block.
type Item struct {
	Name string
	Kind itemtype.Kind
	// Type is the value type every production is converted to.
	// cty.DynamicPseudoType accepts anything.
	Type cty.Type
	// Ordered sorts the values of a MULTI item. Only string and number
	// values take part in the ordering.
	Ordered bool
}

// Step is the format-agnostic representation of a `step` block.
type Step struct {
	ID       string
	Override bool
	Watches  []string
	Consumes []*Consume
	Produces []*Produce
	// Revision changes whenever the step's definition does.
	Revision uint64
}

// Consume is one `consume` block of a step.
type Consume struct {
	Item     string
	Modifier step.ConsumeModifier
}

// Produce is one `produce` block of a step. Name, Value and Values are nil
// when the block does not set them.
type Produce struct {
	Item     string
	Modifier step.ProduceModifier
	Weak     bool
	// Name is the key of a single NAMED production.
	Name hcl.Expression
	// Value is a single production.
	Value hcl.Expression
	// Values is a list of MULTI productions, or an object of NAMED ones.
	Values hcl.Expression
}
