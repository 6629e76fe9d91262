package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
)

// payloadType resolves the `type` argument of an item block. A missing
// argument means any payload. Collections and objects must be fully typed:
// `list(any)` leaves the payload open-ended and is rejected.
func payloadType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	if expr == nil {
		return cty.DynamicPseudoType, nil
	}

	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		return cty.DynamicPseudoType, diags
	}
	if ty != cty.DynamicPseudoType && ty.HasDynamicTypes() {
		return cty.DynamicPseudoType, fmt.Errorf("payload type %s is not a concrete leaf type", typeexpr.TypeString(ty))
	}

	ctxlog.FromContext(ctx).Debug("Resolved item payload type.", "type", typeexpr.TypeString(ty))
	return ty, nil
}
