package metrics

import (
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics counts lifecycle transitions and notification outcomes.
type BookingMetrics struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewBookingMetrics registers the booking metrics on the provided registerer.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Committed booking status transitions.",
	}, []string{"from", "to"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_notifications_total",
		Help: "Booking notification attempts by event and outcome.",
	}, []string{"event", "outcome"})
	reg.MustRegister(transitions, notifications)
	return &BookingMetrics{transitions: transitions, notifications: notifications}
}

// ObserveTransition counts a committed status change. An empty from marks creation.
func (m *BookingMetrics) ObserveTransition(from, to enums.RequestStatus) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(string(from)), normalizeLabel(string(to))).Inc()
}

func (m *BookingMetrics) ObserveNotification(event enums.NotificationEvent, err error) {
	if m == nil || m.notifications == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.notifications.WithLabelValues(normalizeLabel(string(event)), outcome).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
