package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the registration pipeline.
type Metrics struct {
	Started    *prometheus.CounterVec
	Challenges *prometheus.CounterVec
	Completed  *prometheus.CounterVec
}

// New creates and registers the registration metrics.
func New() *Metrics {
	return &Metrics{
		Started: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "membergate_registrations_started_total",
			Help: "Registration attempts started, by entry path.",
		}, []string{"path"}),
		Challenges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "membergate_registration_challenges_total",
			Help: "Challenge decisions, by type and outcome.",
		}, []string{"type", "outcome"}),
		Completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "membergate_registrations_completed_total",
			Help: "Registrations that reached a verified token, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) RecordStarted(path string) {
	if m == nil {
		return
	}
	m.Started.WithLabelValues(path).Inc()
}

func (m *Metrics) RecordChallenge(challengeType, outcome string) {
	if m == nil {
		return
	}
	m.Challenges.WithLabelValues(challengeType, outcome).Inc()
}

func (m *Metrics) RecordCompleted(outcome string) {
	if m == nil {
		return
	}
	m.Completed.WithLabelValues(outcome).Inc()
}
