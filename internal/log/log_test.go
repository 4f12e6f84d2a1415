package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/pkg/correlationid"
)

func TestEnrichedHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, config.Log{
		Format: config.LogFormatJSON,
		Level:  slog.LevelInfo,
	}))

	ctx := correlationid.NewContext(context.Background(), "corr-1")
	ctx = auth.NewContextWithPrincipal(ctx, auth.Principal{UserID: 7, Username: "ana", Role: model.RoleAdmin})

	logger.InfoContext(ctx, "product deleted", slog.String("code", "0007"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "product deleted", record["msg"])
	assert.Equal(t, "corr-1", record["correlation_id"])
	assert.Equal(t, map[string]any{"id": float64(7), "name": "ana"}, record["user"])
	assert.Equal(t, "0007", record["code"])
	assert.NotContains(t, record, "trace_id")
}

func TestEnrichedHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, config.Log{
		Format: config.LogFormatText,
		Level:  slog.LevelWarn,
	}))

	logger.Info("ignored")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
