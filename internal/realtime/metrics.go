package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the hub's Prometheus collectors.
type Metrics struct {
	Rooms       prometheus.Gauge
	Connections prometheus.Gauge
	Published   prometheus.Counter
	Delivered   prometheus.Counter
	Dropped     prometheus.Counter
}

// NewMetrics registers the hub collectors on reg. A nil reg keeps them
// on a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Rooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskboard",
			Subsystem: "realtime",
			Name:      "rooms",
			Help:      "Number of project rooms with at least one subscriber.",
		}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskboard",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Number of registered live connections.",
		}),
		Published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskboard",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Task events announced to project rooms.",
		}),
		Delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskboard",
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Task events queued to a subscribed connection.",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskboard",
			Subsystem: "realtime",
			Name:      "slow_consumers_dropped_total",
			Help:      "Connections disconnected because their outbound queue was full.",
		}),
	}
}
