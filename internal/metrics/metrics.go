package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "speakpanel"

// Metrics holds the panel's Prometheus instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	utterances   *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	voices       prometheus.Gauge
	panelClients prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		utterances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "utterances_total",
				Help:      "Utterance lifecycle events by outcome",
			},
			[]string{"outcome"}, // submitted, started, ended, failed, cancelled, stale, empty
		),

		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "voice_refresh_total",
				Help:      "Voice list refreshes by result",
			},
			[]string{"result"}, // ok, empty, error
		),

		voices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voices",
			Help:      "Voices in the current registry",
		}),

		panelClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panel_clients",
			Help:      "Connected browser panels",
		}),
	}

	m.registry.MustRegister(
		m.utterances,
		m.refreshes,
		m.voices,
		m.panelClients,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) RecordUtterance(outcome string) {
	m.utterances.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRefresh(result string, voices int) {
	m.refreshes.WithLabelValues(result).Inc()
	if result != "error" {
		m.voices.Set(float64(voices))
	}
}

func (m *Metrics) ClientConnected() {
	m.panelClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	m.panelClients.Dec()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
