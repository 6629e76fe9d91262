package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Group buckets diagnostics by kind, keeping the kinds in first-seen order.
func Group(ds []*Diagnostic) ([]Kind, map[Kind][]*Diagnostic) {
	var order []Kind
	groups := make(map[Kind][]*Diagnostic)
	for _, d := range ds {
		if _, seen := groups[d.Kind]; !seen {
			order = append(order, d.Kind)
		}
		groups[d.Kind] = append(groups[d.Kind], d)
	}
	return order, groups
}

// WriteText renders diagnostics grouped by kind for a terminal.
func WriteText(w io.Writer, ds []*Diagnostic) error {
	order, groups := Group(ds)
	for _, k := range order {
		if _, err := fmt.Fprintf(w, "%s (%d):\n", k, len(groups[k])); err != nil {
			return err
		}
		for _, d := range groups[k] {
			line := fmt.Sprintf("  %-7s %s", d.Severity, d.Message)
			if len(d.Steps) > 0 && d.Kind != KindCycle {
				line += fmt.Sprintf(" [steps: %s]", strings.Join(d.Steps, ", "))
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteJSON renders diagnostics as a JSON array.
func WriteJSON(w io.Writer, ds []*Diagnostic) error {
	if ds == nil {
		ds = []*Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

// Errors returns only the error-severity diagnostics.
func Errors(ds []*Diagnostic) []*Diagnostic {
	return slices.DeleteFunc(slices.Clone(ds), func(d *Diagnostic) bool { return !d.IsError() })
}
