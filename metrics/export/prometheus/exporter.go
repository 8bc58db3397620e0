package prometheus

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() gateAuth.MetricsSnapshot
	AuditDropped() uint64
}

// healthSource is optional; when the source implements it every scrape
// pings the session store.
type healthSource interface {
	Health(ctx context.Context) gateAuth.HealthStatus
}

// auditBreakdownSource is optional; when present the dropped audit events
// are also rendered per event type.
type auditBreakdownSource interface {
	AuditDroppedByEvent() map[string]uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
	health healthSource
	audit  auditBreakdownSource
}

// NewPrometheusExporter reads metrics and session store health from engine.
func NewPrometheusExporter(engine *gateAuth.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{source: source}
	if h, ok := source.(healthSource); ok {
		p.health = h
	}
	if a, ok := source.(auditBreakdownSource); ok {
		p.audit = a
	}
	return p
}

// Handler serves the exposition on GET.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render(r.Context())))
	})
}

// Render returns the current exposition. Disabled engine metrics render
// only the audit and store health series.
func (p *PrometheusExporter) Render(ctx context.Context) string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()

	var b strings.Builder
	b.Grow(4096)

	if len(snapshot.Counters) > 0 {
		for _, def := range internaldefs.CounterDefs {
			writeSample(&b, def.Name, def.Help, "counter", strconv.FormatUint(snapshot.Counters[def.ID], 10))
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}

	writeSample(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter",
		strconv.FormatUint(p.source.AuditDropped(), 10))

	if p.audit != nil {
		writeAuditBreakdown(&b, p.audit.AuditDroppedByEvent())
	}

	if p.health != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		status := p.health.Health(ctx)
		cancel()

		up := "0"
		if status.RedisReachable {
			up = "1"
		}
		writeSample(&b, internaldefs.StoreUpName, internaldefs.StoreUpHelp, "gauge", up)
		writeSample(&b, internaldefs.StorePingName, internaldefs.StorePingHelp, "gauge",
			strconv.FormatFloat(status.RedisLatency.Seconds(), 'g', -1, 64))
	}

	return b.String()
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

func writeSample(b *strings.Builder, name, help, kind, value string) {
	writeHeader(b, name, help, kind)
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func writeAuditBreakdown(b *strings.Builder, byEvent map[string]uint64) {
	if len(byEvent) == 0 {
		return
	}
	events := make([]string, 0, len(byEvent))
	for event := range byEvent {
		events = append(events, event)
	}
	sort.Strings(events)

	writeHeader(b, internaldefs.AuditDroppedByEventName, internaldefs.AuditDroppedByEventHelp, "counter")
	for _, event := range events {
		b.WriteString(internaldefs.AuditDroppedByEventName)
		b.WriteString(`{event="`)
		b.WriteString(event)
		b.WriteString(`"} `)
		b.WriteString(strconv.FormatUint(byEvent[event], 10))
		b.WriteByte('\n')
	}
}

func writeHistogram(b *strings.Builder, def internaldefs.HistogramDef, cumulative [8]uint64) {
	writeHeader(b, def.Name, def.Help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(def.Name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(def.Name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// the engine keeps bucket counts only
	b.WriteString(def.Name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}
