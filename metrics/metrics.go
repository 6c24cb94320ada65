package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageCompletionsTotal counts accepted stage completions, labeled
	// by stage and whether the action was a supervisor override.
	StageCompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneltrack_stage_completions_total",
		Help: "The total number of accepted stage completions",
	}, []string{"stage", "override"})

	// StageUndosTotal counts undo operations by stage label.
	StageUndosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneltrack_stage_undos_total",
		Help: "The total number of undone stage completions",
	}, []string{"stage"})

	// UnitsCreatedTotal counts production units created.
	UnitsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paneltrack_units_created_total",
		Help: "The total number of production units created",
	})

	// UnitsInStage gauges how many open units sit at each stage.
	UnitsInStage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "paneltrack_units_in_stage",
		Help: "The number of open units currently at each stage",
	}, []string{"stage"})

	// OutboxPending gauges queued dashboard reports awaiting delivery.
	OutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paneltrack_outbox_pending",
		Help: "The number of outbound reports waiting in the outbox",
	})
)
