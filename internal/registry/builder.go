package registry

import (
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// StepBuilder declares a step fluently. Nothing is recorded until Run.
type StepBuilder struct {
	r *Registry
	d *step.Descriptor
}

// Step starts the declaration of a step with the given identifier.
func (r *Registry) Step(id string) *StepBuilder {
	return &StepBuilder{r: r, d: &step.Descriptor{ID: id}}
}

// Consumes declares a REQUIRED input.
func (b *StepBuilder) Consumes(t itemtype.Type) *StepBuilder {
	return b.consume(t, step.Required)
}

// ConsumesOptional declares an input that may have no producer.
func (b *StepBuilder) ConsumesOptional(t itemtype.Type) *StepBuilder {
	return b.consume(t, step.Optional)
}

// ConsumesAll declares a MULTI-REQUIRED input on a MULTI or NAMED item.
func (b *StepBuilder) ConsumesAll(t itemtype.Type) *StepBuilder {
	return b.consume(t, step.MultiRequired)
}

// After orders the step after every producer of the marker.
func (b *StepBuilder) After(marker itemtype.Type) *StepBuilder {
	return b.consume(marker, step.Optional)
}

// Produces declares a SINGLE output.
func (b *StepBuilder) Produces(t itemtype.Type) *StepBuilder {
	return b.produce(step.Produce{Type: t, Modifier: step.Single})
}

// ProducesMulti declares an output the step may contribute any number of times.
func (b *StepBuilder) ProducesMulti(t itemtype.Type) *StepBuilder {
	return b.produce(step.Produce{Type: t, Modifier: step.Multi})
}

// ProducesFinal declares a sealing output: no other step may produce t.
func (b *StepBuilder) ProducesFinal(t itemtype.Type) *StepBuilder {
	return b.produce(step.Produce{Type: t, Modifier: step.Final})
}

// ProducesWeak declares a SINGLE output that does not by itself make the step
// needed by a targeted build.
func (b *StepBuilder) ProducesWeak(t itemtype.Type) *StepBuilder {
	return b.produce(step.Produce{Type: t, Modifier: step.Single, Weak: true})
}

// Before orders the step before every consumer of the marker.
func (b *StepBuilder) Before(marker itemtype.Type) *StepBuilder {
	return b.produce(step.Produce{Type: marker, Modifier: step.Single})
}

// Override marks the step as replacing other producers of its SIMPLE items.
func (b *StepBuilder) Override() *StepBuilder {
	b.d.Override = true
	return b
}

// Watches declares the inputs the step is sensitive to during live reload.
func (b *StepBuilder) Watches(patterns ...string) *StepBuilder {
	b.d.Watches = append(b.d.Watches, patterns...)
	return b
}

// Run sets the body and registers the step.
func (b *StepBuilder) Run(body step.Body) *step.Descriptor {
	b.d.Body = body
	return b.r.Add(b.d)
}

func (b *StepBuilder) consume(t itemtype.Type, m step.ConsumeModifier) *StepBuilder {
	b.d.Consumes = append(b.d.Consumes, step.Consume{Type: t, Modifier: m})
	return b
}

func (b *StepBuilder) produce(p step.Produce) *StepBuilder {
	b.d.Produces = append(b.d.Produces, p)
	return b
}
