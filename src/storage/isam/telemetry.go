package isam

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Blackdeer1524/ISAMStore/src/storage/isam"

// telemetry traces public operations and counts page-level events. Both
// default to no-op providers.
type telemetry struct {
	tracer trace.Tracer

	splits     metric.Int64Counter
	chained    metric.Int64Counter
	reused     metric.Int64Counter
	tombstoned metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (telemetry, error) {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var t telemetry
	var err, e error
	t.tracer = tp.Tracer(instrumentationName)

	t.splits, e = meter.Int64Counter("isam.page.splits", metric.WithDescription("Pages split on overflow"))
	err = errors.Join(err, e)
	t.chained, e = meter.Int64Counter("isam.page.chained", metric.WithDescription("Overflow pages linked into chains"))
	err = errors.Join(err, e)
	t.reused, e = meter.Int64Counter("isam.page.reused", metric.WithDescription("Tombstoned pages taken back into use"))
	err = errors.Join(err, e)
	t.tombstoned, e = meter.Int64Counter("isam.page.tombstoned", metric.WithDescription("Pages emptied and marked reusable"))
	err = errors.Join(err, e)

	return t, err
}

func (t telemetry) start(op string, attrs ...attribute.KeyValue) trace.Span {
	_, span := t.tracer.Start(
		context.Background(),
		"isam.File."+op,
		trace.WithAttributes(attrs...),
	)
	return span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func count(c metric.Int64Counter) {
	c.Add(context.Background(), 1)
}
