package mq

import (
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("internal/storage/mq")

// kotelHooks builds the franz-go tracing hooks on the global tracer provider
// and propagator, so they must be created after telemetry is initialised.
func kotelHooks(clientID, group string) []kgo.Hook {
	opts := []kotel.TracerOpt{
		kotel.TracerProvider(otel.GetTracerProvider()),
		kotel.TracerPropagator(otel.GetTextMapPropagator()),
		kotel.ClientID(clientID),
	}
	if group != "" {
		opts = append(opts, kotel.ConsumerGroup(group))
	}

	return kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(opts...))).Hooks()
}
