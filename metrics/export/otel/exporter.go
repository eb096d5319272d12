package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/cosync/cosyncjwt"
	"github.com/cosync/cosyncjwt/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *cosyncjwt.Client.
type MetricsSource interface {
	MetricsSnapshot() cosyncjwt.MetricsSnapshot
	AuditStats() cosyncjwt.AuditStats
}

// series is one Client counter observed under a fixed attribute set.
type series struct {
	id   cosyncjwt.MetricID
	attr metric.ObserveOption
}

type latency struct {
	id      cosyncjwt.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	le      [8]metric.ObserveOption
}

// OTelExporter publishes Client metrics through OTel observable instruments.
// Each counter family is one instrument; operations, outcomes and reasons are
// attributes.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration

	families    map[string]metric.Int64ObservableCounter
	series      map[string][]series
	latencies   []latency
	auditEvents metric.Int64ObservableCounter
	auditDrops  metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that read from client.
func NewOTelExporter(meter metric.Meter, client *cosyncjwt.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource registers instruments on meter that read from source.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		families: make(map[string]metric.Int64ObservableCounter, len(internaldefs.CounterFamilies)),
		series:   make(map[string][]series, len(internaldefs.CounterFamilies)),
	}
	var observables []metric.Observable

	for _, f := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
		}
		e.families[f.Name] = ins
		observables = append(observables, ins)
	}
	for _, def := range internaldefs.CounterDefs {
		e.series[def.Family] = append(e.series[def.Family], series{id: def.ID, attr: withLabels(def.Labels...)})
	}

	for _, def := range internaldefs.HistogramDefs {
		l := latency{id: def.ID}
		var err error
		if l.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription("Cumulative histogram bucket count.")); err != nil {
			return nil, fmt.Errorf("create histogram buckets %s: %w", def.Name, err)
		}
		if l.count, err = meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count.")); err != nil {
			return nil, fmt.Errorf("create histogram count %s: %w", def.Name, err)
		}
		for i, bound := range internaldefs.HistogramBounds {
			l.le[i] = withLabels(internaldefs.Label{Name: internaldefs.LabelLe, Value: bound})
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, l.buckets, l.count)
	}

	var err error
	events, dropped := internaldefs.AuditFamilies[0], internaldefs.AuditFamilies[1]
	if e.auditEvents, err = meter.Int64ObservableCounter(events.Name, metric.WithDescription(events.Help)); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", events.Name, err)
	}
	if e.auditDrops, err = meter.Int64ObservableCounter(dropped.Name, metric.WithDescription(dropped.Help)); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", dropped.Name, err)
	}
	observables = append(observables, e.auditEvents, e.auditDrops)

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for family, list := range e.series {
			ins := e.families[family]
			for _, s := range list {
				o.ObserveInt64(ins, int64(snapshot.Counters[s.id]), s.attr)
			}
		}
	}

	for _, l := range e.latencies {
		raw, ok := snapshot.Histograms[l.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets, int64(v), l.le[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}

	stats := e.source.AuditStats()
	for _, r := range internaldefs.AuditResults(stats) {
		o.ObserveInt64(e.auditEvents, int64(r.Value), withLabels(internaldefs.Label{Name: internaldefs.LabelResult, Value: r.Result}))
	}
	for ev, n := range stats.DroppedByEvent {
		o.ObserveInt64(e.auditDrops, int64(n), withLabels(internaldefs.Label{Name: internaldefs.LabelEvent, Value: ev}))
	}
	return nil
}

func withLabels(labels ...internaldefs.Label) metric.ObserveOption {
	kvs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		kvs = append(kvs, attribute.String(l.Name, l.Value))
	}
	return metric.WithAttributeSet(attribute.NewSet(kvs...))
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
