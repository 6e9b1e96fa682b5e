// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/bitrot/internal/engine"
)

const namespace = "bitrot"

// Counts reports the number of living records per category.
type Counts func() (core, regular int)

// Metrics is an engine observer backed by its own registry.
type Metrics struct {
	Registry     *prometheus.Registry
	events       *prometheus.CounterVec
	charsDeleted prometheus.Counter
}

// New builds the collectors. counts may be nil, in which case the record
// gauges are not registered.
func New(counts Counts) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Engine events by kind.",
		}, []string{"kind"}),
		charsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chars_deleted_total",
			Help:      "Characters removed by decay and aging passes.",
		}),
	}
	m.Registry.MustRegister(m.events, m.charsDeleted)

	if counts != nil {
		m.Registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "records",
				Help:        "Living records by category.",
				ConstLabels: prometheus.Labels{"category": "core"},
			}, func() float64 {
				core, _ := counts()
				return float64(core)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "records",
				Help:        "Living records by category.",
				ConstLabels: prometheus.Labels{"category": "regular"},
			}, func() float64 {
				_, regular := counts()
				return float64(regular)
			}),
		)
	}
	return m
}

// Observe implements engine.Observer.
func (m *Metrics) Observe(ev engine.Event) {
	m.events.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == engine.EventCorrupt && ev.Chars > 0 {
		m.charsDeleted.Add(float64(ev.Chars))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
