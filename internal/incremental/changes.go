// Package incremental decides which steps must run again after inputs
// changed, and drives repeated executions that reuse everything else.
//
// A step is sensitive to a change when one of its Watches patterns matches a
// changed file path (doublestar glob syntax, "**" spans directories) or
// equals a changed input key. Sensitive steps and everything downstream of
// them run again; every other step replays its previous productions.
package incremental

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/specialistvlad/buildgraph/internal/step"
)

// ChangeSet is one batch of changes reported by the host.
type ChangeSet struct {
	// Paths are changed files, slash or OS separated.
	Paths []string
	// Inputs are changed input keys, e.g. an environment variable name.
	Inputs []string
}

// Empty reports whether the set carries no change at all.
func (c ChangeSet) Empty() bool {
	return len(c.Paths) == 0 && len(c.Inputs) == 0
}

// Merge returns the union of both sets, sorted and without duplicates.
func (c ChangeSet) Merge(other ChangeSet) ChangeSet {
	union := func(a, b []string) []string {
		out := append(slices.Clone(a), b...)
		slices.Sort(out)
		return slices.Compact(out)
	}
	return ChangeSet{Paths: union(c.Paths, other.Paths), Inputs: union(c.Inputs, other.Inputs)}
}

// Sensitive reports whether d watches anything in changes. A malformed glob
// is an error.
func Sensitive(d *step.Descriptor, changes ChangeSet) (bool, error) {
	for _, w := range d.Watches {
		if slices.Contains(changes.Inputs, w) {
			return true, nil
		}
		pattern := filepath.ToSlash(w)
		if !doublestar.ValidatePattern(pattern) {
			return false, fmt.Errorf("step '%s': invalid watch pattern %q", d.ID, w)
		}
		for _, p := range changes.Paths {
			ok, err := doublestar.Match(pattern, filepath.ToSlash(p))
			if err != nil {
				return false, fmt.Errorf("step '%s': matching %q: %w", d.ID, w, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
