// Package outbox carries request context across the outbox table and the broker.
package outbox

import (
	"context"
	"maps"
	"slices"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tuanvumaihuynh/stockroom/pkg/correlationid"
)

const (
	ContentTypeHeader = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// HeaderOption adds a static header to the map BuildHeaders returns.
type HeaderOption func(map[string]string)

func WithHeader(key, value string) HeaderOption {
	return func(h map[string]string) {
		if value != "" {
			h[key] = value
		}
	}
}

// BuildHeaders injects the trace context and correlation id of ctx. Options
// run first, so propagated values win over a clashing option.
func BuildHeaders(ctx context.Context, opts ...HeaderOption) map[string]string {
	headers := map[string]string{}
	for _, opt := range opts {
		opt(headers)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := correlationid.FromContext(ctx); ok {
		headers[correlationid.Header] = correlationID
	}

	return headers
}

// ExtractContextFromHeaders restores what BuildHeaders put in headers.
func ExtractContextFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := headers[correlationid.Header]; ok && correlationID != "" {
		ctx = correlationid.NewContext(ctx, correlationID)
	}

	return ctx
}

// HeadersFromRecord flattens Kafka record headers. A repeated key keeps its last value.
func HeadersFromRecord(rec *kgo.Record) map[string]string {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

// RecordHeaders is the inverse of HeadersFromRecord. Keys are sorted so
// records built from equal maps are identical.
func RecordHeaders(headers map[string]string) []kgo.RecordHeader {
	out := make([]kgo.RecordHeader, 0, len(headers))
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(headers[k])})
	}
	return out
}
