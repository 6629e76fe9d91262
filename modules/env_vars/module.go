// Package env_vars contributes the process environment to a build as a
// NAMED item, one entry per variable.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// Item holds the collected variables, keyed by name.
var Item = itemtype.Named[string]("env_vars.env")

// Module implements the registry.Module interface for this package.
type Module struct {
	// Names restricts collection to these variables. Empty collects every
	// variable carrying Prefix.
	Names []string
	// Prefix filters variables by name when Names is empty.
	Prefix string
}

// Register registers the collecting step. Each listed variable is also an
// input key, so a live-reload change to it reruns the step.
func (m *Module) Register(r *registry.Registry) {
	r.Step("env_vars.collect").
		ProducesMulti(Item).
		Watches(m.Names...).
		Run(m.collect)
}

func (m *Module) collect(ctx context.Context, c step.Context) error {
	vars := m.lookup()
	ctxlog.FromContext(ctx).Debug("Collected environment variables.", "count", len(vars))
	for name, value := range vars {
		if err := c.ProduceNamed(Item, name, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) lookup() map[string]string {
	vars := make(map[string]string)
	if len(m.Names) > 0 {
		for _, name := range m.Names {
			if v, ok := os.LookupEnv(name); ok {
				vars[name] = v
			}
		}
		return vars
	}
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && strings.HasPrefix(pair[0], m.Prefix) {
			vars[pair[0]] = pair[1]
		}
	}
	return vars
}
