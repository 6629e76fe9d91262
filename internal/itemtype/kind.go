package itemtype

import (
	"fmt"
	"strings"
)

// Kind is the cardinality class of an item type.
type Kind int

const (
	// KindInvalid is the zero value and never valid in a descriptor.
	KindInvalid Kind = iota
	// KindSimple items hold at most one value.
	KindSimple
	// KindMulti items aggregate any number of values into a sequence.
	KindMulti
	// KindNamed items hold any number of values keyed by name.
	KindNamed
	// KindEmpty items carry no payload and only order steps.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "SIMPLE"
	case KindMulti:
		return "MULTI"
	case KindNamed:
		return "NAMED"
	case KindEmpty:
		return "EMPTY"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a textual kind, as found in plan files, into a Kind.
// "virtual" is accepted as an alias for "empty".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return KindSimple, nil
	case "multi":
		return KindMulti, nil
	case "named":
		return KindNamed, nil
	case "empty", "virtual":
		return KindEmpty, nil
	}
	return KindInvalid, fmt.Errorf("unknown item kind %q: must be one of 'simple', 'multi', 'named', 'empty'", s)
}

// Valid reports whether k is one of the four declared kinds.
func (k Kind) Valid() bool {
	return k >= KindSimple && k <= KindEmpty
}
