// Package otel wires monctl's traces and metrics to an OTLP endpoint.
//
// With no endpoint configured, Init still hands back a working tracer and
// instruments — they just never export. Callers record unconditionally;
// configuration decides whether anything leaves the process.
package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "monctl"

// metricInterval is how often the periodic reader pushes metrics.
const metricInterval = 15 * time.Second

// Version is stamped by the caller from the linker-injected cmd.Version.
var Version = "dev"

// Config selects the OTLP HTTP endpoint, normally sourced from the monctl
// config file or the standard OTEL_EXPORTER_OTLP_* variables.
type Config struct {
	Endpoint string // base URL, e.g. "http://localhost:4318"
	Headers  string // comma-separated key=value pairs
}

// Telemetry bundles the tracer and metric instruments the rest of monctl
// records through, plus the providers that need flushing at shutdown.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	Tracer  trace.Tracer
	Metrics *Metrics
}

// Init builds the telemetry stack. Exporters are only constructed when an
// endpoint is configured; without one the tracer and instruments are no-ops.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	t := &Telemetry{}
	if cfg.Endpoint != "" {
		t.tp, t.mp, err = newProviders(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(t.tp)
		otel.SetMeterProvider(t.mp)
	}

	t.Tracer = otel.Tracer(serviceName)
	t.Metrics, err = NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	return t, nil
}

// newProviders constructs the OTLP HTTP trace and metric providers. The
// endpoint splits into host and base path so the SDK appends the standard
// /v1/traces and /v1/metrics suffixes itself.
func newProviders(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, *sdkmetric.MeterProvider, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("otel: invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	basePath := strings.TrimRight(u.Path, "/")
	headers := parseHeaders(cfg.Headers)

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(u.Host),
		otlptracehttp.WithURLPath(basePath + "/v1/traces"),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(u.Host),
		otlpmetrichttp.WithURLPath(basePath + "/v1/metrics"),
	}
	if u.Scheme == "http" {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	if len(headers) > 0 {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(headers))
		metricOpts = append(metricOpts, otlpmetrichttp.WithHeaders(headers))
	}

	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otel trace exporter: %w", err)
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otel metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)
	return tp, mp, nil
}

// parseHeaders splits "k=v,k2=v2" pairs, the OTEL_EXPORTER_OTLP_HEADERS
// format. Pairs without "=" or with an empty key are dropped.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			headers[key] = strings.TrimSpace(val)
		}
	}
	return headers
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t.tp != nil {
		_ = t.tp.Shutdown(ctx)
	}
	if t.mp != nil {
		_ = t.mp.Shutdown(ctx)
	}
}
