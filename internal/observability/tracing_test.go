package observability

import (
	"context"
	"errors"
	"testing"

	"devflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })
	return recorder
}

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartOperation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantCode   string
	}{
		{name: "success", wantStatus: codes.Unset},
		{name: "plain error", err: errors.New("boom"), wantStatus: codes.Error},
		{name: "not found", err: models.NewNotFoundError("Question", 9), wantStatus: codes.Unset, wantCode: models.CodeNotFound},
		{name: "conflict", err: models.NewConflictError("busy", nil), wantStatus: codes.Error, wantCode: models.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)

			_, finish := StartOperation(context.Background(), "vote.cast", 42)
			finish(tt.err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, "vote.cast", spans[0].Name())
			assert.Equal(t, tt.wantStatus, spans[0].Status().Code)

			actor, ok := attr(spans[0], AttrActorID)
			require.True(t, ok)
			assert.Equal(t, int64(42), actor.AsInt64())

			code, ok := attr(spans[0], AttrErrorCode)
			if tt.wantCode == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, code.AsString())
		})
	}
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "devflow-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "devflow-test", Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}
