// Package metrics exposes prometheus collectors for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ingest tracks ingestion request outcomes and notification dispatches.
type Ingest struct {
	requests      *prometheus.CounterVec
	notifications prometheus.Counter
	duration      prometheus.Histogram
}

// NewIngest creates the ingest collectors and registers them on reg.
func NewIngest(reg prometheus.Registerer) (*Ingest, error) {
	m := &Ingest{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firenotify",
			Name:      "ingest_requests_total",
			Help:      "Ingestion requests by terminal outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firenotify",
			Name:      "notifications_sent_total",
			Help:      "Successfully dispatched responsible-party notifications.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firenotify",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingestion request duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.notifications, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRequest counts one finished request under its outcome label.
func (m *Ingest) RecordRequest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}

// RecordNotification counts one successful notification dispatch.
func (m *Ingest) RecordNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}
