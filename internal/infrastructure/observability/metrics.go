package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activegraph/internal/domain/events"
	"activegraph/internal/domain/shared"
)

// Collector holds the Prometheus metrics of one graph. It subscribes to the
// graph's bus and is installed as the bus failure hook.
type Collector struct {
	registry *prometheus.Registry

	// Graph metrics
	EventsTotal        *prometheus.CounterVec
	SubscriberFailures *prometheus.CounterVec
	Nodes              prometheus.Gauge
	Connections        prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of events broadcast, by type",
			},
			[]string{"type"},
		),
		SubscriberFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriber_failures_total",
				Help:      "Total number of failed subscriber deliveries, by event type",
			},
			[]string{"type"},
		),
		Nodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nodes",
				Help:      "Number of nodes in the graph",
			},
		),
		Connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connections",
				Help:      "Number of connections in the graph",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.EventsTotal,
		c.SubscriberFailures,
		c.Nodes,
		c.Connections,
		c.HTTPRequests,
		c.HTTPDuration,
	)

	// Pre-create the event series so dashboards see zeros.
	for _, et := range shared.AllEventTypes {
		c.EventsTotal.WithLabelValues(et.String())
	}
	return c
}

var _ events.Subscriber = (*Collector)(nil)

// Handle implements events.Subscriber.
func (c *Collector) Handle(event shared.Event) error {
	c.EventsTotal.WithLabelValues(event.Type.String()).Inc()

	switch event.Type {
	case shared.EventVertexCreate:
		c.Nodes.Inc()
	case shared.EventVertexDelete:
		c.Nodes.Dec()
	case shared.EventEdgeCreate:
		c.Connections.Inc()
	case shared.EventEdgeDelete:
		c.Connections.Dec()
	}
	return nil
}

// OnFailure is an events.FailureHook.
func (c *Collector) OnFailure(event shared.Event, _ events.SubscriptionID, _ error) {
	c.SubscriberFailures.WithLabelValues(event.Type.String()).Inc()
}

// Sync sets the gauges from authoritative counts, for a graph that already
// had content when the collector subscribed.
func (c *Collector) Sync(nodes, connections int) {
	c.Nodes.Set(float64(nodes))
	c.Connections.Set(float64(connections))
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
