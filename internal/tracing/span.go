package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/replayfire/internal/replay"
	"github.com/torosent/replayfire/internal/source"
)

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// StartDispatchSpan starts a client span for one dispatched event.
func StartDispatchSpan(ctx context.Context, tracer trace.Tracer, ev source.Event) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, ev.Method+" "+ev.Path,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", ev.Method),
		attribute.String("url.path", ev.Path),
		attribute.String("replayfire.log_timestamp", ev.Timestamp.Format("2006-01-02T15:04:05")),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// tracedTransport decorates a replay.Transport with a span per dispatch.
type tracedTransport struct {
	inner  replay.Transport
	tracer trace.Tracer
}

// WrapTransport returns a transport that emits one client span per
// dispatched request. The inner transport is returned unchanged when the
// provider exports nothing.
func WrapTransport(inner replay.Transport, provider *Provider) replay.Transport {
	if !provider.Enabled() {
		return inner
	}
	return &tracedTransport{inner: inner, tracer: provider.Tracer()}
}

func (t *tracedTransport) RoundTrip(ctx context.Context, ev source.Event) (replay.Response, error) {
	ctx, span := StartDispatchSpan(ctx, t.tracer, ev)
	resp, err := t.inner.RoundTrip(ctx, ev)
	if err != nil {
		EndSpan(span, err)
		return resp, err
	}
	EndSpan(span, nil,
		attribute.Int("http.response.status_code", resp.Status),
		attribute.String("replayfire.latency", fmt.Sprintf("%.3fms", float64(resp.Latency.Microseconds())/1000)),
	)
	return resp, nil
}
