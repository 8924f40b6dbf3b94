package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sweep outcomes.
const (
	SweepCanceled = "canceled"
	SweepSkipped  = "skipped"
	SweepFailed   = "failed"
)

// Refund results.
const (
	RefundSucceeded = "succeeded"
	RefundFailed    = "failed"
	RefundRejected  = "rejected"
)

// OrderMetrics counts order lifecycle transitions, refund attempts and
// sweeper outcomes.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	refunds     *prometheus.CounterVec
	sweeps      *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Order status transitions by target status.",
	}, []string{"status"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refund_requests_total",
		Help:      "Refund requests by result.",
	}, []string{"result"})
	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_sweep_total",
		Help:      "Expired order sweep decisions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(transitions, refunds, sweeps)
	return &OrderMetrics{
		transitions: transitions,
		refunds:     refunds,
		sweeps:      sweeps,
	}
}

// OrderTransition records an order entering status.
func (m *OrderMetrics) OrderTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// RefundRequest records the result of a refund attempt.
func (m *OrderMetrics) RefundRequest(result string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(result)).Inc()
}

// SweepOutcome adds n decisions with the given outcome.
func (m *OrderMetrics) SweepOutcome(outcome string, n int) {
	if m == nil || m.sweeps == nil || n <= 0 {
		return
	}
	m.sweeps.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}
