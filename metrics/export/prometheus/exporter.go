package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cosync/cosyncjwt"
	"github.com/cosync/cosyncjwt/metrics/export/internaldefs"
)

// MetricsSource is satisfied by *cosyncjwt.Client.
type MetricsSource interface {
	MetricsSnapshot() cosyncjwt.MetricsSnapshot
	AuditStats() cosyncjwt.AuditStats
}

// PrometheusExporter renders Client metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *cosyncjwt.Client) *PrometheusExporter {
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource creates an exporter from a custom MetricsSource.
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics in Prometheus text exposition format, or
// "" when both metrics and audit are disabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	stats := p.source.AuditStats()
	auditIdle := stats.Delivered == 0 && stats.Dropped == 0 && stats.SinkPanics == 0
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && auditIdle {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	if len(snapshot.Counters) > 0 {
		for _, family := range internaldefs.CounterFamilies {
			writeHeader(&b, family.Name, family.Help, "counter")
			for _, def := range internaldefs.CounterDefs {
				if def.Family == family.Name {
					writeSample(&b, family.Name, def.Labels, snapshot.Counters[def.ID])
				}
			}
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}

	writeAudit(&b, stats)
	return b.String()
}

func writeAudit(b *strings.Builder, stats cosyncjwt.AuditStats) {
	events := internaldefs.AuditFamilies[0]
	writeHeader(b, events.Name, events.Help, "counter")
	for _, r := range internaldefs.AuditResults(stats) {
		writeSample(b, events.Name, []internaldefs.Label{{Name: internaldefs.LabelResult, Value: r.Result}}, r.Value)
	}

	dropped := internaldefs.AuditFamilies[1]
	writeHeader(b, dropped.Name, dropped.Help, "counter")
	for _, ev := range internaldefs.SortedDropEvents(stats) {
		writeSample(b, dropped.Name, []internaldefs.Label{{Name: internaldefs.LabelEvent, Value: ev}}, stats.DroppedByEvent[ev])
	}
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

// writeSample writes one series line: name{l1="v1",...} value.
func writeSample(b *strings.Builder, name string, labels []internaldefs.Label, value uint64) {
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(l.Name)
			b.WriteString(`="`)
			b.WriteString(escapeLabel(l.Value))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", []internaldefs.Label{{Name: internaldefs.LabelLe, Value: le}}, cumulative[i])
	}
	writeSample(b, name+"_count", nil, cumulative[len(cumulative)-1])
	// Snapshots carry no sum.
	writeSample(b, name+"_sum", nil, 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
