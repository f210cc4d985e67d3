// Package metrics defines the Prometheus collectors exposed by the probe
// demo service.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics used by the probe demo.
type Metrics struct {
	registry *prometheus.Registry

	// Gauge metrics
	ProbeHealthy    prometheus.Gauge
	ProbeReady      prometheus.Gauge
	ProbeStarted    prometheus.Gauge
	PeersDiscovered prometheus.Gauge

	// Counter metrics
	ProbeRequestsTotal *prometheus.CounterVec
	TogglesTotal       *prometheus.CounterVec
	DiscoveryTotal     *prometheus.CounterVec

	// Histogram metrics
	DiscoveryDuration prometheus.Histogram
}

// New creates a Metrics instance with its own registry.
func New(namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "probe_demo"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProbeHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_healthy",
			Help:      "Whether the liveness flag is currently set (1) or not (0)",
		}),
		ProbeReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_ready",
			Help:      "Whether the instance currently reports ready (1) or not (0)",
		}),
		ProbeStarted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_started",
			Help:      "Whether the startup probe has latched (1) or not (0)",
		}),
		PeersDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_discovered",
			Help:      "Number of peers returned by the most recent discovery call",
		}),
		ProbeRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_requests_total",
			Help:      "Probe endpoint requests by probe type and result",
		}, []string{"probe", "result"}),
		TogglesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Flag toggle operations by flag name",
		}, []string{"flag"}),
		DiscoveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_total",
			Help:      "Peer discovery attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		DiscoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "Wall time of composed peer discovery calls",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}),
	}

	collectors := []prometheus.Collector{
		m.ProbeHealthy,
		m.ProbeReady,
		m.ProbeStarted,
		m.PeersDiscovered,
		m.ProbeRequestsTotal,
		m.TogglesTotal,
		m.DiscoveryTotal,
		m.DiscoveryDuration,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	m.ProbeHealthy.Set(1)
	return m, nil
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProbe counts a probe request outcome.
func (m *Metrics) RecordProbe(probe string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.ProbeRequestsTotal.WithLabelValues(probe, result).Inc()
}

// RecordToggle counts a flag toggle and mirrors the new value into the
// matching gauge.
func (m *Metrics) RecordToggle(flag string, value bool) {
	m.TogglesTotal.WithLabelValues(flag).Inc()
	var gauge prometheus.Gauge
	switch flag {
	case "healthy":
		gauge = m.ProbeHealthy
	case "ready":
		gauge = m.ProbeReady
	default:
		return
	}
	if value {
		gauge.Set(1)
	} else {
		gauge.Set(0)
	}
}

// RecordDiscovery counts a discovery attempt per strategy.
func (m *Metrics) RecordDiscovery(strategy, outcome string) {
	m.DiscoveryTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveDiscovery records the duration and result size of a composed
// discovery call.
func (m *Metrics) ObserveDiscovery(seconds float64, peers int) {
	m.DiscoveryDuration.Observe(seconds)
	m.PeersDiscovered.Set(float64(peers))
}
