package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the verification engine.
type Metrics struct {
	Outcomes             *prometheus.CounterVec
	Duration             prometheus.Histogram
	NotificationFailures prometheus.Counter
}

// New creates and registers all verification metrics.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shc_verifications_total",
			Help: "Verification requests by terminal outcome",
		}, []string{"status"}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "shc_verification_duration_seconds",
			Help:    "End-to-end verification request duration",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shc_review_notification_failures_total",
			Help: "Review notifications that could not be delivered",
		}),
	}
}

// ObserveRequest records one finished verification request.
func (m *Metrics) ObserveRequest(status string, d time.Duration) {
	m.Outcomes.WithLabelValues(status).Inc()
	m.Duration.Observe(d.Seconds())
}
