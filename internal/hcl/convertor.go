package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	functions map[string]function.Function
}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{functions: functions()}
}

// Evaluate implements config.Converter.
func (c *Converter) Evaluate(ctx context.Context, expr hcl.Expression, vars map[string]cty.Value) (cty.Value, error) {
	evalCtx := &hcl.EvalContext{Variables: vars, Functions: c.functions}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	ctxlog.FromContext(ctx).Debug("Evaluated plan expression.", "range", expr.Range().String(), "type", val.Type().FriendlyName())
	return val, nil
}

// Convert implements config.Converter.
func (c *Converter) Convert(v cty.Value, ty cty.Type) (cty.Value, error) {
	if ty == cty.DynamicPseudoType {
		return v, nil
	}
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot convert %s to required type %s: %w", v.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return converted, nil
}
