package app

import (
	"io"

	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/modules/env_vars"
	"github.com/specialistvlad/buildgraph/modules/print"
)

// coreModules is the list of Go modules compiled into the buildgraph binary.
// Declarative plan steps are registered after them.
func coreModules(cfg *Config, out io.Writer) []registry.Module {
	return []registry.Module{
		&env_vars.Module{Prefix: cfg.EnvPrefix},
		&print.Module{Out: out},
	}
}
