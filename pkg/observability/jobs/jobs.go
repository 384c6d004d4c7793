// Package jobs instruments background jobs with a span and OTEL metrics.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumenter wraps job executions.
type Instrumenter struct {
	tracer      trace.Tracer
	jobsRunning metric.Int64UpDownCounter
	jobDuration metric.Float64Histogram
	jobsTotal   metric.Int64Counter
}

func NewInstrumenter(tracer trace.Tracer, meter metric.Meter, serviceName string) (*Instrumenter, error) {
	jobsRunning, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_jobs_running", serviceName),
		metric.WithDescription("Number of jobs currently executing"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_job_duration_seconds", serviceName),
		metric.WithDescription("Background job duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	jobsTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_total", serviceName),
		metric.WithDescription("Total background jobs processed"),
	)
	if err != nil {
		return nil, err
	}

	return &Instrumenter{
		tracer:      tracer,
		jobsRunning: jobsRunning,
		jobDuration: jobDuration,
		jobsTotal:   jobsTotal,
	}, nil
}

// Run executes fn inside a "job.<name>" span and records its outcome.
func (i *Instrumenter) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	i.jobsRunning.Add(ctx, 1)
	defer i.jobsRunning.Add(ctx, -1)

	ctx, span := i.tracer.Start(ctx, "job."+name, trace.WithAttributes(attribute.String("job.name", name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("job.name", name),
		attribute.String("status", status),
	)
	i.jobDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	i.jobsTotal.Add(ctx, 1, attrs)
	return err
}
