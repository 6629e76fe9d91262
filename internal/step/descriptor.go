package step

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
)

// Body is the opaque unit of work of a step. It reads its declared consumes
// and writes its declared produces through c, and nothing else.
type Body func(ctx context.Context, c Context) error

// Consume is one declared input of a step.
type Consume struct {
	Type     itemtype.Type
	Modifier ConsumeModifier
}

// Produce is one declared output of a step.
type Produce struct {
	Type     itemtype.Type
	Modifier ProduceModifier
	// Weak produces do not, on their own, make a step needed when the build
	// is restricted to a set of target items.
	Weak bool
}

// Descriptor is a registered build step.
type Descriptor struct {
	// ID is the registration origin, see package nodeid.
	ID       string
	Consumes []Consume
	Produces []Produce
	Body     Body
	// Override lets this step replace the output of other producers of the
	// SIMPLE items it produces.
	Override bool
	// Watches lists glob patterns or input keys this step is sensitive to
	// during live reload.
	Watches []string
	// Revision identifies the definition of Body. Live reload reruns a step
	// whose revision differs from the last successful build. Steps compiled
	// into the binary leave it zero.
	Revision uint64
	// Rank is the registration order, assigned by the registry.
	Rank int
}

// ConsumeOf returns the consume declaration for the named item.
func (d *Descriptor) ConsumeOf(item string) (Consume, bool) {
	for _, c := range d.Consumes {
		if c.Type.Name() == item {
			return c, true
		}
	}
	return Consume{}, false
}

// ProduceOf returns the produce declaration for the named item.
func (d *Descriptor) ProduceOf(item string) (Produce, bool) {
	for _, p := range d.Produces {
		if p.Type.Name() == item {
			return p, true
		}
	}
	return Produce{}, false
}

// IsIsolated reports whether the step declares neither consumes nor produces
// and therefore cannot be ordered relative to any other step.
func (d *Descriptor) IsIsolated() bool {
	return len(d.Consumes) == 0 && len(d.Produces) == 0
}

func (d *Descriptor) String() string {
	return d.ID
}
