package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsByEventAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.PublishOutcome("order_paid", OutboxPublished)
	m.PublishOutcome("order_paid", OutboxPublished)
	m.PublishOutcome("order_paid", OutboxRetried)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	family := findMetricFamily(mfs, "tripmarket_outbox_publish_total")
	if family == nil {
		t.Fatal("outbox family missing")
	}
	var published float64
	for _, metric := range family.Metric {
		if matchesLabel(metric.GetLabel(), "outcome", OutboxPublished) && matchesLabel(metric.GetLabel(), "event_type", "order_paid") {
			published = metric.GetCounter().GetValue()
		}
	}
	if published != 2 {
		t.Fatalf("expected 2 published got %v", published)
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.PublishOutcome("order_paid", OutboxDeadLetter)
}

func TestOutboxMetricsTracksDeadLetterBacklog(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.DeadLetterBacklog("max_attempts", 3)
	m.DeadLetterAdded("max_attempts")
	m.DeadLetterBacklog("non_retryable", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	family := findMetricFamily(mfs, "tripmarket_outbox_dead_letters")
	if family == nil {
		t.Fatal("dead letter family missing")
	}
	var maxAttempts float64
	for _, metric := range family.Metric {
		if matchesLabel(metric.GetLabel(), "reason", "max_attempts") {
			maxAttempts = metric.GetGauge().GetValue()
		}
	}
	if maxAttempts != 4 {
		t.Fatalf("expected backlog 4 got %v", maxAttempts)
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.DeadLetterBacklog("max_attempts", 1)
	nilMetrics.DeadLetterAdded("max_attempts")
}
