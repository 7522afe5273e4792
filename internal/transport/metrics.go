package transport

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for outgoing requests. All methods are
// safe to call on a nil receiver, which disables collection.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
}

// NewMetrics creates the request metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riak_client_requests_total",
				Help: "Total number of HTTP requests issued to Riak",
			},
			[]string{"method", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riak_client_request_duration_seconds",
				Help:    "Duration of HTTP requests issued to Riak",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riak_client_request_errors_total",
				Help: "Total number of HTTP requests that failed before a response",
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) observeError(method string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(method).Inc()
}
