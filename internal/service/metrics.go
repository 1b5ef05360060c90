package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"valuator/internal/model"
)

// Submission outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid"
	OutcomeTransport  = "transport_error"
	OutcomeSuperseded = "superseded"
)

// Metrics are the dashboard's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	images      *prometheus.CounterVec
	locations   *prometheus.CounterVec
	sessions    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valuator",
			Name:      "submissions_total",
			Help:      "Valuation submissions by domain and outcome.",
		}, []string{"domain", "outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "valuator",
			Name:      "prediction_duration_seconds",
			Help:      "Round trip time of prediction requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"domain"}),
		images: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valuator",
			Name:      "images_encoded_total",
			Help:      "Image attachments by source and outcome.",
		}, []string{"source", "outcome"}),
		locations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valuator",
			Name:      "device_locations_total",
			Help:      "Device location lookups by outcome.",
		}, []string{"outcome"}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "valuator",
			Name:      "form_sessions",
			Help:      "Mounted form sessions.",
		}),
	}
}

func (m *Metrics) observeSubmission(domain model.DomainID, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(domain), outcome).Inc()
}

func (m *Metrics) observeLatency(domain model.DomainID, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(string(domain)).Observe(d.Seconds())
}

func (m *Metrics) observeImages(source string, ok, failed int) {
	if m == nil {
		return
	}
	m.images.WithLabelValues(source, "ok").Add(float64(ok))
	m.images.WithLabelValues(source, "failed").Add(float64(failed))
}

func (m *Metrics) observeLocation(outcome string) {
	if m == nil {
		return
	}
	m.locations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
