package payments

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fanline"

var (
	intents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "intents_total",
			Help:      "Payment intent operations by action",
		},
		[]string{"action"},
	)

	webhooks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhooks_total",
			Help:      "Settled gateway webhooks by event type",
		},
		[]string{"type"},
	)
)

func recordIntent(action string) {
	intents.WithLabelValues(action).Inc()
}

func recordWebhook(eventType string) {
	webhooks.WithLabelValues(eventType).Inc()
}
