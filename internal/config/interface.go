package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific plan loader.
type Loader interface {
	// Load reads every plan file found under the given paths, translates
	// them into the format-agnostic model, and returns a matching Converter.
	// Paths that do not exist are ignored.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter evaluates plan expressions. It is the bridge between the raw
// configuration and the values stored for plan items.
type Converter interface {
	// Evaluate evaluates expr with the given variables in scope, plus the
	// format's function library.
	Evaluate(ctx context.Context, expr hcl.Expression, vars map[string]cty.Value) (cty.Value, error)

	// Convert coerces v to the declared item type ty.
	Convert(v cty.Value, ty cty.Type) (cty.Value, error)
}
