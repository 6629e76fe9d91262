package nodeid

import (
	"fmt"
	"slices"
	"strings"
)

// Segment is one component of an address path, e.g. `routes[2]`.
type Segment struct {
	Name  string
	Index int // -1 when the segment has no index
}

// Seg builds a segment without an index.
func Seg(name string) Segment {
	return Segment{Name: name, Index: -1}
}

// IndexedSeg builds a segment with an index.
func IndexedSeg(name string, index int) Segment {
	return Segment{Name: name, Index: index}
}

// HasIndex reports whether the segment carries an explicit index.
func (s Segment) HasIndex() bool {
	return s.Index != -1
}

func (s Segment) String() string {
	if !s.HasIndex() {
		return s.Name
	}
	return fmt.Sprintf("%s[%d]", s.Name, s.Index)
}

// Address is the structured form of a step identifier.
type Address struct {
	Path []Segment
}

// String returns the canonical form of the address.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	parts := make([]string, len(a.Path))
	for i, s := range a.Path {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Extension returns the name of the first segment, which identifies the
// extension that contributed the step.
func (a *Address) Extension() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[0].Name
}

// Equal reports whether both addresses denote the same identifier.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}
