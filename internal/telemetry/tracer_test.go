package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/telemetry"
)

func TestInitTracerWithoutCollector(t *testing.T) {
	cleanup, err := telemetry.InitTracer(context.Background(), config.Otel{ServiceName: "sr-test"})
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")

	assert.NoError(t, cleanup(context.Background()))
}
