package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sabertooth"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ConnectionsActive prometheus.Gauge
	RateLimited       prometheus.Counter
	BuildsTotal       *prometheus.CounterVec
	SnapshotNumber    prometheus.Gauge
}

// NewRegistry creates the metric set on a private Prometheus registry,
// together with the Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests answered, by method and status code.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from request parsed to response written.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open client connections.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the per-client rate limiter.",
		}),
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mandate_builds_total",
			Help:      "Mandate build attempts, by mandate and result.",
		}, []string{"mandate", "result"}),
		SnapshotNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routing_snapshot_number",
			Help:      "Number of the currently published routing snapshot.",
		}),
	}

	r.reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.ConnectionsActive,
		r.RateLimited,
		r.BuildsTotal,
		r.SnapshotNumber,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// MustRegister adds extra collectors, such as a mandate Collector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveRequest records one answered request. Methods other than GET,
// HEAD and POST share the label "OTHER".
func (r *Registry) ObserveRequest(method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	method = methodLabel(method)
	r.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func methodLabel(method string) string {
	switch method {
	case "GET", "HEAD", "POST":
		return method
	default:
		return "OTHER"
	}
}

// ConnOpened increments the open connection gauge.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Inc()
}

// ConnClosed decrements the open connection gauge.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}

// Limited counts a rate-limited request.
func (r *Registry) Limited() {
	if r == nil {
		return
	}
	r.RateLimited.Inc()
}

// BuildFinished counts one build attempt.
func (r *Registry) BuildFinished(mandate string, ok bool) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.BuildsTotal.WithLabelValues(mandate, result).Inc()
}

// SnapshotPublished records the number of a newly published snapshot.
func (r *Registry) SnapshotPublished(n uint64) {
	if r == nil {
		return
	}
	r.SnapshotNumber.Set(float64(n))
}
