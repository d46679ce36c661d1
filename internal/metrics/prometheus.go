package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsNamespace = "apiswitch"
	MetricsSubsystem = "probe"
)

// Exporter mirrors collector events into Prometheus series.
type Exporter struct {
	registry *prometheus.Registry

	probesTotal   *prometheus.CounterVec
	probeLatency  *prometheus.HistogramVec
	healthy       *prometheus.GaugeVec
	switchesTotal prometheus.Counter
	active        *prometheus.GaugeVec

	mu      sync.Mutex
	current string
}

// NewExporter registers every series on a private registry.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "total",
				Help:      "Probes run, by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		probeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "latency_seconds",
				Help:      "Latency of healthy probes",
				Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10), // 25ms to ~13s
			},
			[]string{"endpoint"},
		),
		healthy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: MetricsNamespace,
				Name:      "endpoint_healthy",
				Help:      "1 when the last probe of the endpoint succeeded",
			},
			[]string{"endpoint"},
		),
		switchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "switches_total",
				Help:      "Automatic failovers performed",
			},
		),
		active: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: MetricsNamespace,
				Name:      "active_endpoint",
				Help:      "1 for the endpoint currently active",
			},
			[]string{"endpoint"},
		),
	}
}

func (e *Exporter) observe(event Event) {
	switch event.Type {
	case EventProbeCompleted:
		result := "unhealthy"
		if event.Healthy {
			result = "healthy"
			e.probeLatency.WithLabelValues(event.Endpoint).Observe(event.Latency.Seconds())
		}
		e.probesTotal.WithLabelValues(event.Endpoint, result).Inc()
		e.healthy.WithLabelValues(event.Endpoint).Set(boolToFloat(event.Healthy))

	case EventHealthChanged:
		e.healthy.WithLabelValues(event.Endpoint).Set(boolToFloat(event.Healthy))

	case EventSwitched:
		e.switchesTotal.Inc()
		e.setActive(event.Endpoint)
	}
}

func (e *Exporter) setActive(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != "" {
		e.active.DeleteLabelValues(e.current)
	}
	e.current = name
	if name != "" {
		e.active.WithLabelValues(name).Set(1)
	}
}

// Handler serves the text exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
