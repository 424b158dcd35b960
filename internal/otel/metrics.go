package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "monctl"

// Metrics holds all OTEL metric instruments for monctl.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// ddcutil invocation counters (partitioned by subcommand, transport
	// and outcome via attributes) and latency histogram.
	Commands        metric.Int64Counter
	CommandDuration metric.Float64Histogram

	// Privileged session counters.
	Authentications metric.Int64Counter
	SessionTimeouts metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Commands, err = meter.Int64Counter("ddcutil.commands.total",
		metric.WithDescription("Total ddcutil invocations partitioned by subcommand, transport and outcome"))
	if err != nil {
		return nil, err
	}

	m.CommandDuration, err = meter.Float64Histogram("ddcutil.command.duration",
		metric.WithDescription("Wall-clock duration of ddcutil invocations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.Authentications, err = meter.Int64Counter("session.authentications",
		metric.WithDescription("Privileged session authentication attempts partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.SessionTimeouts, err = meter.Int64Counter("session.timeouts",
		metric.WithDescription("Commands that timed out while routed through the privileged session"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCommand records one ddcutil invocation.
func (m *Metrics) RecordCommand(ctx context.Context, subcommand, transport, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("ddcutil.subcommand", subcommand),
		attribute.String("ddcutil.transport", transport),
		attribute.String("ddcutil.outcome", outcome),
	)
	m.Commands.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordAuthentication records an authentication attempt.
func (m *Metrics) RecordAuthentication(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Authentications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.outcome", outcome),
	))
}

// RecordSessionTimeout records a timed-out session command.
func (m *Metrics) RecordSessionTimeout(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionTimeouts.Add(ctx, 1)
}
