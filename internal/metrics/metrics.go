// Package metrics records notekeeper instrumentation through OpenTelemetry and
// exposes it for Prometheus scraping.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/thebtf/notekeeper"

// Collector holds the instruments. A nil *Collector is valid and records
// nothing.
type Collector struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	intents       metric.Int64Counter
	scans         metric.Int64Counter
	scanDuration  metric.Float64Histogram
	reminders     metric.Int64Counter
	messagesSent  metric.Int64Counter
	sendWait      metric.Float64Histogram
	pendingDialog metric.Int64ObservableGauge
}

// New creates a Collector backed by its own Prometheus registry.
func New() (*Collector, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	c, err := newCollector(provider.Meter(meterName))
	if err != nil {
		return nil, err
	}
	c.registry = reg
	c.provider = provider
	return c, nil
}

// NewNoop creates a Collector whose instruments discard everything.
func NewNoop() *Collector {
	c, _ := newCollector(noop.NewMeterProvider().Meter(meterName))
	return c
}

func newCollector(meter metric.Meter) (*Collector, error) {
	c := &Collector{}
	var err error

	if c.intents, err = meter.Int64Counter(
		"notekeeper.intents",
		metric.WithDescription("Intents applied, by intent name and result"),
	); err != nil {
		return nil, fmt.Errorf("create intents counter: %w", err)
	}
	if c.scans, err = meter.Int64Counter(
		"notekeeper.scheduler.scans",
		metric.WithDescription("Due-reminder scans run"),
	); err != nil {
		return nil, fmt.Errorf("create scans counter: %w", err)
	}
	if c.scanDuration, err = meter.Float64Histogram(
		"notekeeper.scheduler.scan.duration",
		metric.WithDescription("Wall time of one due-reminder scan"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create scan duration histogram: %w", err)
	}
	if c.reminders, err = meter.Int64Counter(
		"notekeeper.scheduler.reminders",
		metric.WithDescription("Due reminders processed, by result"),
	); err != nil {
		return nil, fmt.Errorf("create reminders counter: %w", err)
	}
	if c.messagesSent, err = meter.Int64Counter(
		"notekeeper.telegram.messages",
		metric.WithDescription("Outgoing Telegram requests, by kind and result"),
	); err != nil {
		return nil, fmt.Errorf("create messages counter: %w", err)
	}
	if c.sendWait, err = meter.Float64Histogram(
		"notekeeper.telegram.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the outgoing rate limiter"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create send wait histogram: %w", err)
	}
	if c.pendingDialog, err = meter.Int64ObservableGauge(
		"notekeeper.dialog.pending",
		metric.WithDescription("Owners with a pending action"),
	); err != nil {
		return nil, fmt.Errorf("create pending gauge: %w", err)
	}
	return c, nil
}

func result(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("result", "error")
	}
	return attribute.String("result", "ok")
}

// RecordIntent counts one applied intent.
func (c *Collector) RecordIntent(ctx context.Context, name string, err error) {
	if c == nil {
		return
	}
	c.intents.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", name), result(err)))
}

// ScanReport is what one scan did.
type ScanReport struct {
	Delivered    int
	Failed       int
	DeleteFailed int
	Duration     time.Duration
	Err          error
}

// RecordScan records a finished scan.
func (c *Collector) RecordScan(ctx context.Context, r ScanReport) {
	if c == nil {
		return
	}
	c.scans.Add(ctx, 1, metric.WithAttributes(result(r.Err)))
	c.scanDuration.Record(ctx, r.Duration.Seconds())
	add := func(n int, status string) {
		if n > 0 {
			c.reminders.Add(ctx, int64(n), metric.WithAttributes(attribute.String("status", status)))
		}
	}
	add(r.Delivered, "delivered")
	add(r.Failed, "failed")
	add(r.DeleteFailed, "delete_failed")
}

// RecordSend counts one outgoing Telegram request.
func (c *Collector) RecordSend(ctx context.Context, kind string, wait time.Duration, err error) {
	if c == nil {
		return
	}
	c.messagesSent.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), result(err)))
	c.sendWait.Record(ctx, wait.Seconds())
}

// ObservePending reports fn's value as the pending-dialog gauge on every
// collection.
func (c *Collector) ObservePending(fn func() int) error {
	if c == nil || c.provider == nil {
		return nil
	}
	_, err := c.provider.Meter(meterName).RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(c.pendingDialog, int64(fn()))
		return nil
	}, c.pendingDialog)
	return err
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil || c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}
