package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fanline"

var (
	notificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications stored by kind",
		},
		[]string{"kind"},
	)

	pushAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "push_attempts_total",
			Help:      "Push delivery attempts by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)
)

func recordNotification(kind string) {
	notificationsCreated.WithLabelValues(kind).Inc()
}

func recordPush(transport, outcome string) {
	pushAttempts.WithLabelValues(transport, outcome).Inc()
}
