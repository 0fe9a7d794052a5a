package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FallbackResults  *prometheus.CounterVec
	BookingsCreated  *prometheus.CounterVec
	PaymentRedirects *prometheus.CounterVec
	APIErrors        *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// NewMetrics creates new prometheus metrics registered on reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FallbackResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_results_total",
			Help:      "The total number of responses served from demo or synthetic data",
		}, []string{"operation"}),
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "The total number of bookings created, by result source",
		}, []string{"source"}),
		PaymentRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_redirects_total",
			Help:      "The total number of payment redirects resolved, by preference source",
		}, []string{"source"}),
		APIErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "The total number of failed calls to the remote API",
		}, []string{"operation"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Fallback counts a degraded result for an operation
func (m *Metrics) Fallback(operation string) {
	if m == nil {
		return
	}
	m.FallbackResults.WithLabelValues(operation).Inc()
}

// BookingCreated counts a booking by where it came from
func (m *Metrics) BookingCreated(source string) {
	if m == nil {
		return
	}
	m.BookingsCreated.WithLabelValues(source).Inc()
}

// PaymentRedirect counts a resolved payment redirect
func (m *Metrics) PaymentRedirect(source string) {
	if m == nil {
		return
	}
	m.PaymentRedirects.WithLabelValues(source).Inc()
}

// APIError counts a failed remote call
func (m *Metrics) APIError(operation string) {
	if m == nil {
		return
	}
	m.APIErrors.WithLabelValues(operation).Inc()
}

// ObserveRequest records how long an HTTP request took
func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
