package outbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/stockroom/pkg/correlationid"
	"github.com/tuanvumaihuynh/stockroom/pkg/outbox"
)

func TestHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx = correlationid.NewContext(ctx, "req-1")

	headers := outbox.BuildHeaders(ctx,
		outbox.WithHeader(outbox.ContentTypeHeader, outbox.ContentTypeJSON),
		outbox.WithHeader("X-Empty", ""),
		outbox.WithHeader(correlationid.Header, "overridden"),
	)
	assert.Equal(t, "req-1", headers[correlationid.Header])
	assert.Equal(t, outbox.ContentTypeJSON, headers[outbox.ContentTypeHeader])
	assert.NotContains(t, headers, "X-Empty")
	assert.Contains(t, headers, "traceparent")

	rec := &kgo.Record{Headers: outbox.RecordHeaders(headers)}

	got := outbox.ExtractContextFromHeaders(context.Background(), outbox.HeadersFromRecord(rec))

	correlationID, ok := correlationid.FromContext(got)
	assert.True(t, ok)
	assert.Equal(t, "req-1", correlationID)
	assert.Equal(t, traceID, trace.SpanContextFromContext(got).TraceID())
}

func TestRecordHeadersSorted(t *testing.T) {
	got := outbox.RecordHeaders(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []kgo.RecordHeader{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
	}, got)
}
