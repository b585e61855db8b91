package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// deliveries counts dispatch outcomes.
	// Labels: outcome (delivered, suppressed, permanent_failure, transient_failure)
	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remindbot",
		Subsystem: "scheduler",
		Name:      "deliveries_total",
		Help:      "Reminder delivery attempts by outcome",
	}, []string{"outcome"})

	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "remindbot",
		Subsystem: "scheduler",
		Name:      "tick_errors_total",
		Help:      "Scheduler ticks that failed and triggered a backoff",
	})

	pending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "remindbot",
		Subsystem: "scheduler",
		Name:      "pending_reminders",
		Help:      "Reminders waiting to become due",
	})

	suppressedOwners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "remindbot",
		Subsystem: "scheduler",
		Name:      "suppressed_owners",
		Help:      "Owners skipped after a permanent delivery failure",
	})
)
