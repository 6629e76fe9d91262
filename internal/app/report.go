package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
)

// Report statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusInvalid   = "invalid"
)

// Report is the outcome of one command, rendered as text or JSON.
type Report struct {
	Status      string             `json:"status"`
	Steps       []StepReport       `json:"steps,omitempty"`
	Items       []ItemReport       `json:"items,omitempty"`
	Diagnostics []*diag.Diagnostic `json:"diagnostics"`
}

// StepReport is the final status of one step.
type StepReport struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ItemReport is the resolved content of one item type.
type ItemReport struct {
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Producers []string       `json:"producers,omitempty"`
	Present   bool           `json:"present"`
	Value     any            `json:"value,omitempty"`
	Values    []any          `json:"values,omitempty"`
	Named     map[string]any `json:"named,omitempty"`
}

// newReport assembles the report of an execution. err is the error returned
// by the executor or the builder, if any.
func newReport(ctx context.Context, bg *builder.Graph, g graph.Graph, results *resultstore.Store, targets []string, err error) *Report {
	r := &Report{Status: StatusSucceeded}
	if bg != nil {
		r.Diagnostics = append(r.Diagnostics, bg.Diagnostics()...)
	}

	var invalid *diag.ValidationError
	var failed *diag.ExecutionError
	switch {
	case errors.As(err, &invalid):
		r.Status = StatusInvalid
		r.Diagnostics = invalid.Diagnostics
	case errors.As(err, &failed):
		r.Status = StatusFailed
		r.Diagnostics = append(r.Diagnostics, failed.Diagnostics()...)
	case err != nil:
		r.Status = StatusFailed
		r.Diagnostics = append(r.Diagnostics, diag.Errorf(diag.KindStepFailed, nil, nil, "%v", err))
	}

	if g != nil {
		for _, n := range g.AllNodes(ctx) {
			status, _ := g.NodeStatus(ctx, n.ID)
			r.Steps = append(r.Steps, StepReport{ID: n.Key(), Status: status.String()})
		}
	}
	if bg != nil && results != nil {
		r.Items = itemReports(bg, results, targets)
	}
	return r
}

// itemReports lists the target items, or every item when there are none.
func itemReports(bg *builder.Graph, results *resultstore.Store, targets []string) []ItemReport {
	var out []ItemReport
	for _, it := range bg.Items() {
		name := it.Type.Name()
		if len(targets) > 0 && !slices.Contains(targets, name) {
			continue
		}
		ir := ItemReport{
			Name:      name,
			Kind:      it.Type.Kind().String(),
			Producers: results.Producers(it.Type),
			Present:   results.Has(it.Type),
		}
		switch it.Type.Kind() {
		case itemtype.KindSimple:
			if v, ok := results.Get(it.Type); ok {
				ir.Value = display(v)
			}
		case itemtype.KindMulti:
			for _, v := range results.GetAll(it.Type) {
				ir.Values = append(ir.Values, display(v))
			}
		case itemtype.KindNamed:
			for k, v := range results.Named(it.Type) {
				if ir.Named == nil {
					ir.Named = make(map[string]any)
				}
				ir.Named[k] = display(v)
			}
		}
		out = append(out, ir)
	}
	return out
}

// display makes plan payloads JSON encodable.
func display(v any) any {
	if cv, ok := v.(cty.Value); ok {
		return ctyjson.SimpleJSONValue{Value: cv}
	}
	return v
}

// write renders r in the given format.
func (r *Report) write(w io.Writer, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return r.writeText(w)
}

func (r *Report) writeText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Build %s.\n", r.Status)

	if len(r.Steps) > 0 {
		counts := make(map[string]int)
		var order []string
		for _, s := range r.Steps {
			if counts[s.Status] == 0 {
				order = append(order, s.Status)
			}
			counts[s.Status]++
		}
		slices.Sort(order)
		parts := make([]string, len(order))
		for i, s := range order {
			parts[i] = fmt.Sprintf("%d %s", counts[s], s)
		}
		fmt.Fprintf(&b, "Steps: %s\n", strings.Join(parts, ", "))
	}

	for _, it := range r.Items {
		fmt.Fprintf(&b, "%s (%s)", it.Name, it.Kind)
		switch {
		case !it.Present:
			b.WriteString(": absent\n")
		case it.Value != nil:
			fmt.Fprintf(&b, " = %s\n", encode(it.Value))
		case it.Named != nil:
			b.WriteString(":\n")
			keys := make([]string, 0, len(it.Named))
			for k := range it.Named {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "  %s = %s\n", k, encode(it.Named[k]))
			}
		case it.Values != nil:
			b.WriteString(":\n")
			for _, v := range it.Values {
				fmt.Fprintf(&b, "  - %s\n", encode(v))
			}
		default:
			b.WriteString(": present\n")
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	return diag.WriteText(w, r.Diagnostics)
}

// encode renders one value on a single line.
func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
