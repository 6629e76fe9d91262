package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/specialistvlad/buildgraph/internal/node"
)

const instrumentationName = "github.com/specialistvlad/buildgraph/internal/localexecutor"

// Tracer returns the executor's tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// StartBuild opens the span covering one graph execution.
func StartBuild(ctx context.Context, tracer trace.Tracer, steps int, fingerprint uint64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Execute", trace.WithAttributes(
		attribute.Int("build.steps", steps),
		attribute.String("build.fingerprint", fmt.Sprintf("%016x", fingerprint)),
	))
}

// StartStep opens the span of one step body.
func StartStep(ctx context.Context, tracer trace.Tracer, n *node.Node) (context.Context, trace.Span) {
	return tracer.Start(ctx, n.Key(), trace.WithAttributes(
		attribute.String("step.id", n.Key()),
		attribute.Int("step.rank", n.Step.Rank),
	))
}

// End closes span, recording err when there is one.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
