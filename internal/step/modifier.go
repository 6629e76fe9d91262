package step

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
)

// ConsumeModifier states how strongly a step needs an item.
type ConsumeModifier int

const (
	// Required consumes need at least one producer in the graph.
	Required ConsumeModifier = iota
	// Optional consumes see an absent value when nothing produces the item.
	Optional
	// MultiRequired consumes of MULTI or NAMED items wait for every producer
	// but accept that there are none, in which case the step sees an empty
	// collection.
	MultiRequired
)

func (m ConsumeModifier) String() string {
	switch m {
	case Required:
		return "REQUIRED"
	case Optional:
		return "OPTIONAL"
	case MultiRequired:
		return "MULTI-REQUIRED"
	}
	return fmt.Sprintf("ConsumeModifier(%d)", int(m))
}

// ParseConsumeModifier parses the textual form used by plan files.
func ParseConsumeModifier(s string) (ConsumeModifier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "required":
		return Required, nil
	case "optional":
		return Optional, nil
	case "multi", "multi-required", "multi_required":
		return MultiRequired, nil
	}
	return 0, fmt.Errorf("unknown consume modifier %q", s)
}

// ProduceModifier states the cardinality of a step's contribution.
type ProduceModifier int

const (
	// Single contributes exactly one value.
	Single ProduceModifier = iota
	// Multi contributes any number of values, including none.
	Multi
	// Final contributes exactly one value and seals the item type: no other
	// step may produce it.
	Final
)

func (m ProduceModifier) String() string {
	switch m {
	case Single:
		return "SINGLE"
	case Multi:
		return "MULTI"
	case Final:
		return "FINAL"
	}
	return fmt.Sprintf("ProduceModifier(%d)", int(m))
}

// ParseProduceModifier parses the textual form used by plan files.
func ParseProduceModifier(s string) (ProduceModifier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return Single, nil
	case "multi":
		return Multi, nil
	case "final":
		return Final, nil
	}
	return 0, fmt.Errorf("unknown produce modifier %q", s)
}

// CheckConsume reports whether modifier m may be used on items of kind k.
func CheckConsume(k itemtype.Kind, m ConsumeModifier) error {
	if m == MultiRequired && k != itemtype.KindMulti && k != itemtype.KindNamed {
		return fmt.Errorf("consume modifier %s requires a MULTI or NAMED item, got %s", m, k)
	}
	return nil
}

// CheckProduce reports whether modifier m may be used on items of kind k.
func CheckProduce(k itemtype.Kind, m ProduceModifier) error {
	if m == Multi && (k == itemtype.KindSimple || k == itemtype.KindEmpty) {
		return fmt.Errorf("produce modifier %s is not allowed on a %s item", m, k)
	}
	return nil
}
