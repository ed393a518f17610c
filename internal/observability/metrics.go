package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckpointsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freight", Name: "checkpoints_accepted_total", Help: "Checkpoint submissions accepted as new events"},
		[]string{"event_type"},
	)
	CheckpointsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "freight", Name: "checkpoints_duplicate_total", Help: "Checkpoint submissions replayed idempotently"},
	)
	CostRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freight", Name: "cost_recomputes_total", Help: "Full costing recompute passes by kind"},
		[]string{"kind"},
	)
)
