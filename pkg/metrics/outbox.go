package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxPublisherMetrics records delivery outcomes for the outbox dispatcher.
type OutboxPublisherMetrics struct {
	publishDuration *prometheus.HistogramVec
	published       *prometheus.CounterVec
	failed          *prometheus.CounterVec
	deadLettered    *prometheus.CounterVec
}

// NewOutboxPublisherMetrics registers the publisher metrics on the provided registerer.
func NewOutboxPublisherMetrics(reg prometheus.Registerer) *OutboxPublisherMetrics {
	if reg == nil {
		return &OutboxPublisherMetrics{}
	}
	publishDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published per topic.",
	}, []string{"topic"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Transient publish failures per topic.",
	}, []string{"topic"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dead_lettered_total",
		Help: "Outbox events moved to the dead letter table per reason.",
	}, []string{"reason"})
	reg.MustRegister(publishDuration, published, failed, deadLettered)
	return &OutboxPublisherMetrics{
		publishDuration: publishDuration,
		published:       published,
		failed:          failed,
		deadLettered:    deadLettered,
	}
}

// ObservePublish records a successful publish with its latency.
func (m *OutboxPublisherMetrics) ObservePublish(topic string, duration time.Duration) {
	if m == nil || m.published == nil {
		return
	}
	label := normalizeLabel(topic)
	m.published.WithLabelValues(label).Inc()
	m.publishDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncFailure increments the transient failure counter for a topic.
func (m *OutboxPublisherMetrics) IncFailure(topic string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncDeadLettered increments the DLQ counter for a terminal reason.
func (m *OutboxPublisherMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ConsumerMetrics records processing outcomes for event consumers.
type ConsumerMetrics struct {
	processed *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_total",
		Help: "Events handled per consumer, event type, and outcome.",
	}, []string{"consumer", "event_type", "outcome"})
	reg.MustRegister(processed)
	return &ConsumerMetrics{processed: processed}
}

// IncProcessed counts one handled event with its outcome (ack, nack, skip).
func (m *ConsumerMetrics) IncProcessed(consumer, eventType, outcome string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
