package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish outcomes.
const (
	OutboxPublished  = "published"
	OutboxRetried    = "retried"
	OutboxDeadLetter = "dead_letter"
)

// OutboxMetrics counts relay outcomes per event type and tracks the
// dead-letter backlog.
type OutboxMetrics struct {
	publishes   *prometheus.CounterVec
	deadLetters *prometheus.GaugeVec
}

// NewOutboxMetrics registers the relay counter. A nil registerer yields a no-op
// recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_total",
		Help:      "Outbox relay attempts by event type and outcome.",
	}, []string{"event_type", "outcome"})
	deadLetters := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_dead_letters",
		Help:      "Order and payment events parked in the dead-letter table by reason.",
	}, []string{"reason"})
	reg.MustRegister(publishes, deadLetters)
	return &OutboxMetrics{publishes: publishes, deadLetters: deadLetters}
}

func (m *OutboxMetrics) PublishOutcome(eventType, outcome string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// DeadLetterBacklog sets the parked event count for one reason.
func (m *OutboxMetrics) DeadLetterBacklog(reason string, n int64) {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.WithLabelValues(normalizeLabel(reason)).Set(float64(n))
}

// DeadLetterAdded bumps the backlog after the relay parks an event.
func (m *OutboxMetrics) DeadLetterAdded(reason string) {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.WithLabelValues(normalizeLabel(reason)).Inc()
}
