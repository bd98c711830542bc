package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConsumeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "searchbot_quota_consume_total",
		Help: "Outcomes of quota consume attempts.",
	}, []string{"result"})

	PlanAssignTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "searchbot_quota_plan_assign_total",
		Help: "Manual plan assignments applied.",
	})

	ConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "searchbot_quota_conflict_retries_total",
		Help: "Ledger row conflicts retried by the engine.",
	})
)
