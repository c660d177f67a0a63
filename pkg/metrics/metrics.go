package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors shared by the services. A nil *Metrics is valid and records nothing.
type Metrics struct {
	outboxPublished *prometheus.CounterVec
	outboxFailures  *prometheus.CounterVec
	sagaOutcomes    *prometheus.CounterVec
	seatConflicts   prometheus.Counter
	notifications   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridebuddy",
			Name:      "outbox_published_total",
			Help:      "Outbox messages accepted by the broker.",
		}, []string{"service", "event_type"}),
		outboxFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridebuddy",
			Name:      "outbox_publish_failures_total",
			Help:      "Failed outbox publish attempts.",
		}, []string{"service", "event_type"}),
		sagaOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridebuddy",
			Name:      "saga_outcomes_total",
			Help:      "Booking saga runs by final outcome.",
		}, []string{"outcome"}),
		seatConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ridebuddy",
			Name:      "seat_conflicts_total",
			Help:      "Optimistic concurrency conflicts on the seat ledger.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridebuddy",
			Name:      "notifications_total",
			Help:      "Notifications handled, by event type and result (sent, duplicate, failed).",
		}, []string{"event_type", "result"}),
	}
	reg.MustRegister(m.outboxPublished, m.outboxFailures, m.sagaOutcomes, m.seatConflicts, m.notifications)
	return m
}

func (m *Metrics) OutboxPublished(service, eventType string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(service, eventType).Inc()
}

func (m *Metrics) OutboxFailed(service, eventType string) {
	if m == nil {
		return
	}
	m.outboxFailures.WithLabelValues(service, eventType).Inc()
}

func (m *Metrics) SagaOutcome(outcome string) {
	if m == nil {
		return
	}
	m.sagaOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SeatConflict() {
	if m == nil {
		return
	}
	m.seatConflicts.Inc()
}

func (m *Metrics) Notification(eventType, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType, result).Inc()
}
