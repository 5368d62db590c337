package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/session"
)

// Metrics holds the Prometheus collectors of one server. Each server owns
// its registry so several can live in one process.
type Metrics struct {
	registry    *prometheus.Registry
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	edits       *prometheus.CounterVec
}

func NewMetrics(store *session.Store) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bedit",
			Name:      "conversions_total",
			Help:      "Imports and exports by direction, format and result.",
		}, []string{"direction", "format", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bedit",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting documents.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"direction", "format"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bedit",
			Name:      "edits_total",
			Help:      "Document operations by name and result.",
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(
		m.conversions,
		m.duration,
		m.edits,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bedit",
			Name:      "sessions",
			Help:      "Live editing sessions.",
		}, func() float64 { return float64(store.Len()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) conversion(direction string, f format.Format, start time.Time, err error) {
	m.duration.WithLabelValues(direction, string(f)).Observe(time.Since(start).Seconds())
	m.conversions.WithLabelValues(direction, string(f), result(err)).Inc()
}

func (m *Metrics) edit(op string, err error) {
	m.edits.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
