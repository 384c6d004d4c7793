package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRunRecordsSpanAndError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	inst, err := NewInstrumenter(tp.Tracer("test"), metricnoop.NewMeterProvider().Meter("test"), "huddle")
	require.NoError(t, err)

	boom := errors.New("boom")
	got := inst.Run(context.Background(), "orphan-files", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, got, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "job.orphan-files", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
}
