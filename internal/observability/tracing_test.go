package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "quill-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{
		ServiceName: "quill-test",
		Enabled:     true,
		Exporter:    "zipkin",
	})
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{"Always", 1, "AlwaysOnSampler"},
		{"Above One", 2, "AlwaysOnSampler"},
		{"Never", 0, "AlwaysOffSampler"},
		{"Ratio", 0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, newSampler(tt.ratio).Description(), tt.want)
		})
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := Tracer
	Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("quill-test")
	t.Cleanup(func() { Tracer = prev })

	_, span := StartSpan(context.Background(), "TokenService", "Refresh")
	EndSpan(span, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "TokenService.Refresh", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}
