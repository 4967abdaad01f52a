package voiceauth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

const namespace = "voicegate"

// Metrics are the service's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Enrollments   *prometheus.CounterVec
	Samples       *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	Scores        *prometheus.HistogramVec
	Duration      *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Enrollment sessions by outcome.",
		}, []string{"outcome"}),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_samples_total",
			Help:      "Enrollment samples by outcome.",
		}, []string{"outcome"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification attempts by mode and confidence.",
		}, []string{"mode", "confidence"}),
		Scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_score",
			Help:      "Composite similarity of verification attempts.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"mode"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Enroll and verify latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.Enrollments, m.Samples, m.Verifications, m.Scores, m.Duration)
	return m
}

func outcome(ok bool) string {
	if ok {
		return "accepted"
	}
	return "rejected"
}

func (m *Metrics) enrollment(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Enrollments.WithLabelValues("ok").Inc()
	} else {
		m.Enrollments.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) sample(ok bool) {
	if m != nil {
		m.Samples.WithLabelValues(outcome(ok)).Inc()
	}
}

func (m *Metrics) verification(r *voiceprint.VerificationResult) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(string(r.Mode), string(r.Confidence)).Inc()
	m.Scores.WithLabelValues(string(r.Mode)).Observe(r.Score)
}

func (m *Metrics) observe(op string, d time.Duration) {
	if m != nil {
		m.Duration.WithLabelValues(op).Observe(d.Seconds())
	}
}
