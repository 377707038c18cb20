// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophlicense"

// Metrics groups every server collector. Build it once per registry.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreErrors     *prometheus.CounterVec

	ActiveSessions prometheus.Gauge
	SessionsClosed *prometheus.CounterVec
	ProbeFailures  prometheus.Counter

	ExpirySweeps    *prometheus.CounterVec
	KeysInvalidated prometheus.Counter

	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter

	PayloadDeliveries *prometheus.CounterVec
	PayloadBytes      prometheus.Counter
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "total",
			Help:      "Requests handled by request type and outcome kind.",
		}, []string{"request", "kind"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "duration_seconds",
			Help:      "Request handling latency in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"request"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Unexpected persistent store failures by operation.",
		}, []string{"operation"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of logged in sessions.",
		}),
		SessionsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Sessions removed from the registry by reason.",
		}, []string{"reason"}),
		ProbeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "probe_failures_total",
			Help:      "Liveness probes that failed or timed out.",
		}),

		ExpirySweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "expiry_sweeps_total",
			Help:      "Key expiry sweeps by result (expired, nothing, error).",
		}, []string{"result"}),
		KeysInvalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "invalidated_total",
			Help:      "Keys invalidated for exceeding their maximum age.",
		}),

		ConnectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "connections_accepted_total",
			Help:      "Accepted client connections.",
		}),
		ConnectionsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "connections_rejected_total",
			Help:      "Connections closed by the accept rate limiter.",
		}),

		PayloadDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payload",
			Name:      "deliveries_total",
			Help:      "Payload deliveries after login by result.",
		}, []string{"result"}),
		PayloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payload",
			Name:      "bytes_sent_total",
			Help:      "Payload bytes written to clients.",
		}),
	}
}

// NewUnregistered is a convenience for tests and optional wiring: the
// collectors live on a private registry nobody scrapes.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
