package otel

import (
	"context"
	"errors"
	"fmt"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() gateAuth.MetricsSnapshot
	AuditDropped() uint64
}

type healthSource interface {
	Health(ctx context.Context) gateAuth.HealthStatus
}

type observedCounter struct {
	id         gateAuth.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      gateAuth.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics as asynchronous OpenTelemetry
// instruments read from one snapshot per collection.
type OTelExporter struct {
	source       metricsSource
	health       healthSource
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	storeUp      metric.Int64ObservableGauge
	storePing    metric.Float64ObservableGauge
}

func NewOTelExporter(meter metric.Meter, engine *gateAuth.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments on meter. A source that
// also reports Health gets store up and ping gauges.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}
	if h, ok := source.(healthSource); ok {
		exporter.health = h
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+3)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."), metric.WithUnit("{request}"))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countIns, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	if exporter.health != nil {
		up, err := meter.Int64ObservableGauge(internaldefs.StoreUpName, metric.WithDescription(internaldefs.StoreUpHelp))
		if err != nil {
			return nil, fmt.Errorf("create store up gauge: %w", err)
		}
		ping, err := meter.Float64ObservableGauge(internaldefs.StorePingName, metric.WithDescription(internaldefs.StorePingHelp), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("create store ping gauge: %w", err)
		}
		exporter.storeUp, exporter.storePing = up, ping
		observables = append(observables, up, ping)
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(ctx context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for _, c := range e.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i := range cumulative {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	if e.health != nil {
		status := e.health.Health(ctx)
		var up int64
		if status.RedisReachable {
			up = 1
		}
		observer.ObserveInt64(e.storeUp, up)
		observer.ObserveFloat64(e.storePing, status.RedisLatency.Seconds())
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
