// Package metrics exposes navigation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "navsim"

// Collector groups the simulation's instruments on a private registry so
// several simulations can live in one process.
type Collector struct {
	registry *prometheus.Registry

	PathSearches  prometheus.Counter
	PathFailures  prometheus.Counter
	Relocations   *prometheus.CounterVec // reason: no_path | occupied | command
	Cancellations prometheus.Counter
	LocalMisses   prometheus.Counter
	FieldBuilds   prometheus.Counter
	Arrivals      prometheus.Counter
	Agents        prometheus.Gauge
	TickDuration  prometheus.Histogram
	PhaseDuration *prometheus.HistogramVec // phase: input | layers | index | pathfinding | steering | events | cleanup
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		PathSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "path_searches_total",
			Help: "Global jump point searches run.",
		}),
		PathFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "path_failures_total",
			Help: "Global searches that found no path.",
		}),
		Relocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "destination_relocations_total",
			Help: "Destinations moved to the nearest available cell.",
		}, []string{"reason"}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "destination_cancellations_total",
			Help: "Orders dropped after repeated search failures.",
		}),
		LocalMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "local_step_unavailable_total",
			Help: "Refreshes where the flow field had no direction at the agent.",
		}),
		FieldBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "flow_field_builds_total",
			Help: "Sector flow fields built.",
		}),
		Arrivals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "arrivals_total",
			Help: "Agents that reached their commanded destination.",
		}),
		Agents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "agents",
			Help: "Live agents.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds",
			Help:    "Wall time of one simulation tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "phase_duration_seconds",
			Help:    "Wall time of one tick phase.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16),
		}, []string{"phase"}),
	}
	c.registry.MustRegister(
		c.PathSearches, c.PathFailures, c.Relocations, c.Cancellations,
		c.LocalMisses, c.FieldBuilds, c.Arrivals, c.Agents, c.TickDuration, c.PhaseDuration,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveTick records the duration of one tick.
func (c *Collector) ObserveTick(d time.Duration) {
	c.TickDuration.Observe(d.Seconds())
}

// ObservePhase records the duration of one tick phase.
func (c *Collector) ObservePhase(phase string, d time.Duration) {
	c.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
