package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the W3C trace context of a span in its stored form, as
// kept on outbox rows between the writing transaction and the relay.
type TraceContext struct {
	Traceparent string
	Tracestate  string
}

// CaptureTraceContext returns the trace context active in ctx. Both fields
// are empty when ctx carries no sampled span.
func CaptureTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Traceparent: carrier.Get("traceparent"), Tracestate: carrier.Get("tracestate")}
}

// Resume makes tc the remote parent of spans started from the returned context.
func (tc TraceContext) Resume(ctx context.Context) context.Context {
	if tc.Traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": tc.Traceparent}
	if tc.Tracestate != "" {
		carrier.Set("tracestate", tc.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
