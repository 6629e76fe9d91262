// Package print renders collected lines once every contributor is done.
//
// Any step may contribute to Lines; the report step waits for all of them,
// writes the sorted lines and marks Done.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/step"
	"github.com/specialistvlad/buildgraph/modules/env_vars"
)

var (
	// Lines aggregates the text to print. Values are sorted.
	Lines = itemtype.Multi[string]("print.line")
	// Done is marked after the lines were written.
	Done = itemtype.Empty("print.done")
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the report; nil writes to standard output.
	Out io.Writer
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Step("print.env").
		ConsumesAll(env_vars.Item).
		ProducesMulti(Lines).
		Run(formatEnv)

	r.Step("print.report").
		ConsumesAll(Lines).
		Before(Done).
		Run(m.report)
}

// formatEnv turns collected environment variables into lines.
func formatEnv(_ context.Context, c step.Context) error {
	env := step.NamedValues[string](c, env_vars.Item)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Produce(Lines, fmt.Sprintf("%s = %q", k, env[k])); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) report(ctx context.Context, c step.Context) error {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	lines := step.Values[string](c, Lines)
	ctxlog.FromContext(ctx).Info("Printing report.", "lines", len(lines))

	if len(lines) == 0 {
		_, err := fmt.Fprintln(out, "      (null)")
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(out, "      %s\n", l); err != nil {
			return err
		}
	}
	return nil
}
