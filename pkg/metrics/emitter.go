// Package metrics emits per-tick OpenTelemetry metrics for the thermal
// engine and exposes them to Prometheus. It never imports internal/throttle
// types beyond throttle.TickSnapshot, so the core stays free of the ambient
// observability stack (see Engine.OnTick / Engine.Snapshot).
package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/thermalguard/enginecore/internal/throttle"
)

// Emitter owns the meter provider and every instrument the engine's tick
// loop feeds. One Emitter serves the whole process; Handler exposes its
// readings for Prometheus scraping.
type Emitter struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	pidError        metric.Float64Gauge
	iBudget         metric.Float64Gauge
	powerBudget     metric.Float64Gauge
	transientBudget metric.Float64Gauge

	pidCdevRequest   metric.Int64Gauge
	hardlimitRequest metric.Int64Gauge
	releaseStep      metric.Int64Gauge
	registryMax      metric.Int64Gauge
	guardTripped     metric.Int64Gauge

	reloadCount metric.Int64Counter
}

// New creates an Emitter backed by the OTel Prometheus exporter. Handler
// returns an http.Handler to mount at /metrics.
func New() (*Emitter, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("metrics: creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("thermalguard.enginecore")

	e := &Emitter{provider: provider, handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}

	if e.pidError, err = meter.Float64Gauge("enginecore.pid.error",
		metric.WithDescription("setpoint minus measured temperature for the sensor's active target severity")); err != nil {
		return nil, err
	}
	if e.iBudget, err = meter.Float64Gauge("enginecore.pid.i_budget",
		metric.WithDescription("accumulated integral term of the power budget, in mW")); err != nil {
		return nil, err
	}
	if e.powerBudget, err = meter.Float64Gauge("enginecore.pid.power_budget",
		metric.WithDescription("PID-computed power budget before allocation, in mW")); err != nil {
		return nil, err
	}
	if e.transientBudget, err = meter.Float64Gauge("enginecore.pid.transient_budget",
		metric.WithDescription("budget transient captured at the last target-severity change (previous budget minus the new clamped budget), in mW")); err != nil {
		return nil, err
	}
	if e.pidCdevRequest, err = meter.Int64Gauge("enginecore.allocator.cdev_request",
		metric.WithDescription("PID-allocated cooling state requested for a (sensor, cdev) pair")); err != nil {
		return nil, err
	}
	if e.hardlimitRequest, err = meter.Int64Gauge("enginecore.hardlimit.cdev_request",
		metric.WithDescription("hard-limit cooling state requested for a (sensor, cdev) pair")); err != nil {
		return nil, err
	}
	if e.releaseStep, err = meter.Int64Gauge("enginecore.release.step",
		metric.WithDescription("release-evaluator step counter for a (sensor, cdev) pair")); err != nil {
		return nil, err
	}
	if e.registryMax, err = meter.Int64Gauge("enginecore.registry.max_request",
		metric.WithDescription("max-of-votes cooling state currently published for a cdev")); err != nil {
		return nil, err
	}
	if e.guardTripped, err = meter.Int64Gauge("enginecore.oscillation_guard.tripped",
		metric.WithDescription("1 if a sensor's oscillation guard is currently tripped, else 0")); err != nil {
		return nil, err
	}
	if e.reloadCount, err = meter.Int64Counter("enginecore.config.reload_total",
		metric.WithDescription("count of successful config hot-reloads")); err != nil {
		return nil, err
	}

	return e, nil
}

// Handler returns the http.Handler that serves the Prometheus exposition
// format for this Emitter's registry.
func (e *Emitter) Handler() http.Handler {
	return e.handler
}

// Shutdown flushes and releases the underlying meter provider.
func (e *Emitter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// RecordTick records a sensor's tick-local PID and allocation outcome.
func (e *Emitter) RecordTick(ctx context.Context, snap throttle.TickSnapshot) {
	sensorAttr := attribute.String("sensor", snap.Sensor)
	opt := metric.WithAttributes(sensorAttr)

	if !math.IsNaN(snap.PrevErr) {
		e.pidError.Record(ctx, snap.PrevErr, opt)
	}
	if !math.IsNaN(snap.IBudget) {
		e.iBudget.Record(ctx, snap.IBudget, opt)
	}
	if !math.IsNaN(snap.PrevPowerBudget) {
		e.powerBudget.Record(ctx, snap.PrevPowerBudget, opt)
	}
	if snap.BudgetTransient != 0 {
		e.transientBudget.Record(ctx, snap.BudgetTransient, opt)
	}

	for cdev, req := range snap.PIDCdevRequest {
		e.pidCdevRequest.Record(ctx, int64(req), metric.WithAttributes(sensorAttr, attribute.String("cdev", cdev)))
	}
	for cdev, req := range snap.HardlimitRequest {
		e.hardlimitRequest.Record(ctx, int64(req), metric.WithAttributes(sensorAttr, attribute.String("cdev", cdev)))
	}
	for cdev, step := range snap.ReleaseStep {
		e.releaseStep.Record(ctx, int64(step), metric.WithAttributes(sensorAttr, attribute.String("cdev", cdev)))
	}
}

// RecordGuard records the current oscillation-guard state for a sensor,
// meant to be wired directly into Engine.OnTick.
func (e *Emitter) RecordGuard(sensor string, tripped bool) {
	v := int64(0)
	if tripped {
		v = 1
	}
	e.guardTripped.Record(context.Background(), v, metric.WithAttributes(attribute.String("sensor", sensor)))
}

// RecordRegistryMax records the registry's current max-of-votes state for a cdev.
func (e *Emitter) RecordRegistryMax(cdev string, max int) {
	e.registryMax.Record(context.Background(), int64(max), metric.WithAttributes(attribute.String("cdev", cdev)))
}

// RecordReload increments the config-reload counter.
func (e *Emitter) RecordReload(ctx context.Context) {
	e.reloadCount.Add(ctx, 1)
}
