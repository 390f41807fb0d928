package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the engine's Prometheus metrics. A nil *Collector is valid
// and records nothing, so library code can take one unconditionally.
type Collector struct {
	registry *prometheus.Registry

	fetchAttempts   *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	runs            *prometheus.CounterVec
	activeWorkers   prometheus.Gauge
}

func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscan_fetch_attempts_total",
			Help: "Homepage fetch attempts by scheme and result",
		},
		[]string{"scheme", "result"},
	)
	c.resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscan_resolutions_total",
			Help: "Domain resolutions by outcome",
		},
		[]string{"outcome"},
	)
	c.resolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "careerscan_resolve_duration_seconds",
			Help:    "Wall time spent resolving one domain",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)
	c.runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerscan_runs_total",
			Help: "Batch runs by final status",
		},
		[]string{"status"},
	)
	c.activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "careerscan_active_workers",
			Help: "Batch workers currently resolving a domain",
		},
	)

	c.registry.MustRegister(
		c.fetchAttempts,
		c.resolutions,
		c.resolveDuration,
		c.runs,
		c.activeWorkers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) FetchAttempt(scheme, result string) {
	if c == nil {
		return
	}
	c.fetchAttempts.WithLabelValues(scheme, result).Inc()
}

func (c *Collector) Resolution(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.resolutions.WithLabelValues(outcome).Inc()
	c.resolveDuration.Observe(d.Seconds())
}

func (c *Collector) Run(status string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(status).Inc()
}

func (c *Collector) WorkerBusy(delta float64) {
	if c == nil {
		return
	}
	c.activeWorkers.Add(delta)
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
