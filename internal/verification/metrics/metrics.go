package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the verification service.
type Metrics struct {
	Created    *prometheus.CounterVec
	Deliveries *prometheus.CounterVec
	Checks     *prometheus.CounterVec
}

// New creates and registers the verification metrics.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "membergate_verifications_created_total",
			Help: "Verification records created, by type.",
		}, []string{"type"}),
		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "membergate_verification_deliveries_total",
			Help: "Code delivery attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "membergate_verification_checks_total",
			Help: "Code checks, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) RecordCreated(verificationType string) {
	if m == nil {
		return
	}
	m.Created.WithLabelValues(verificationType).Inc()
}

func (m *Metrics) RecordDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) RecordCheck(outcome string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(outcome).Inc()
}
