// Package metrics groups all Prometheus instruments used across mdbridge.
// Registered once at startup via New(); passed by pointer wherever needed.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument the server observes.
type Metrics struct {
	reg *prometheus.Registry

	ItemsEnqueued  prometheus.Counter
	ItemsDelivered *prometheus.CounterVec
	ItemsRejected  prometheus.Counter
	QueueDepth     prometheus.Gauge
	StreamSessions prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Delivery transport labels for ItemsDelivered.
const (
	TransportPoll      = "poll"
	TransportStream    = "stream"
	TransportWebsocket = "websocket"
)

// New registers all instruments with a fresh registry and returns the
// populated Metrics struct. Using a private registry (instead of
// prometheus.DefaultRegisterer) keeps tests isolated and avoids global state.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,

		ItemsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdbridge_items_enqueued_total",
			Help: "Total items accepted by the producer endpoint.",
		}),
		ItemsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdbridge_items_delivered_total",
			Help: "Total items handed to a consumer, by transport.",
		}, []string{"transport"}),
		ItemsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdbridge_items_rejected_total",
			Help: "Total submissions rejected before reaching the store.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdbridge_queue_depth",
			Help: "Current number of items awaiting delivery.",
		}),
		StreamSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdbridge_stream_sessions",
			Help: "Currently open push sessions (/stream and /ws).",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdbridge_http_requests_total",
			Help: "Total HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdbridge_http_request_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.ItemsEnqueued,
		m.ItemsDelivered,
		m.ItemsRejected,
		m.QueueDepth,
		m.StreamSessions,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the Prometheus exposition handler for the dedicated
// metrics listener.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
