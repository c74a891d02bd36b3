package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notetrack_task_transitions_total",
		Help: "Task lifecycle transitions committed, by transition.",
	}, []string{"transition"})

	trackedSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notetrack_tracked_seconds_total",
		Help: "Active task time closed out of the ledger, in seconds.",
	})
)
