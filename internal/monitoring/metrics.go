package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	PaymentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Total number of payment status transitions by target status",
		},
		[]string{"status"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Total number of gateway webhook events by event type and outcome",
		},
		[]string{"event", "outcome"},
	)
	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Duration of payment gateway calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		},
		[]string{"operation", "outcome"},
	)
	RoomRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_status_recomputes_total",
			Help: "Total number of room occupancy recomputations by result",
		},
		[]string{"result"},
	)
)

func InitMetrics() {
	collectors := map[string]prometheus.Collector{
		"PaymentTransitions": PaymentTransitions,
		"WebhookEvents":      WebhookEvents,
		"GatewayDuration":    GatewayDuration,
		"RoomRecomputes":     RoomRecomputes,
	}
	for name, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
}
