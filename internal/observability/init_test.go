package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

func TestInit_NoEndpointUsesNoopProviders(t *testing.T) {
	providers, err := Init(DefaultConfig())

	require.NoError(t, err)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Shutdown)

	// No-op providers have nothing to flush.
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "bogus", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLogLevel(tc.in), "level %q", tc.in)
	}
}

func TestTracingHandler_AttachesServiceName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewTracingHandler(inner, "trustfang"))

	logger.Info("hello")

	assert.Contains(t, buf.String(), `"service":"trustfang"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestNewIngestMetrics(t *testing.T) {
	t.Parallel()

	meter := noopmetric.NewMeterProvider().Meter("test")

	im, err := NewIngestMetrics(meter)

	require.NoError(t, err)
	require.NotNil(t, im)

	// Recording against no-op instruments must not panic.
	im.RecordBatch(context.Background(), "file", 10, 1, 0)
}
