// Package telemetry installs the process-wide OpenTelemetry tracer and
// meter providers exactly once, gated by MICROMEGAS_ENABLE_CPU_TRACING.
// Every other package reaches for the global otel.Tracer/otel.Meter
// directly (see internal/objectstore and internal/catalog); this
// package exists only to decide what those resolve to, not to be a
// dependency of the code paths they instrument.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const enableEnvVar = "MICROMEGAS_ENABLE_CPU_TRACING"

var (
	initOnce   sync.Once
	shutdownFn func(context.Context) error
)

// Init installs real sdktrace/sdkmetric providers when
// MICROMEGAS_ENABLE_CPU_TRACING is set to a truthy value; otherwise it
// leaves the otel API's built-in no-op providers in place, so
// otel.Tracer/otel.Meter calls throughout the codebase cost nothing.
// Safe to call more than once: only the first call takes effect.
func Init(serviceName string) {
	initOnce.Do(func() {
		if !enabled() {
			return
		}
		shutdownFn = install(serviceName)
	})
}

func enabled() bool {
	v, ok := os.LookupEnv(enableEnvVar)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func install(serviceName string) func(context.Context) error {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		res = resource.Default()
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	var tp *sdktrace.TracerProvider
	if err == nil {
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
	}

	metricExp, err := stdoutmetric.New()
	var mp *sdkmetric.MeterProvider
	if err == nil {
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
	}

	return func(ctx context.Context) error {
		var errs []error
		if tp != nil {
			if err := tp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if mp != nil {
			if err := mp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("telemetry: shutdown: %v", errs)
		}
		return nil
	}
}

// Shutdown flushes and stops whatever providers Init installed. A
// no-op when tracing was never enabled.
func Shutdown(ctx context.Context) error {
	if shutdownFn == nil {
		return nil
	}
	return shutdownFn(ctx)
}

// Tracer is a thin alias for otel.Tracer, kept so call sites import
// this package instead of the otel API root for the common case.
func Tracer(name string) trace.Tracer { return otel.Tracer(name) }

// Meter is a thin alias for otel.Meter, the metric-side counterpart of
// Tracer.
func Meter(name string) metric.Meter { return otel.Meter(name) }
