package engine

import (
	"context"
	"log"
	"strconv"

	"paneltrack/messaging"
	"paneltrack/metrics"
)

// reportHooks is the engine's own listener: every unit lifecycle event
// updates metrics, refreshes the live counts, and queues a dashboard
// report in the outbox.
type reportHooks struct {
	e *Engine
}

func (e *Engine) wireEventHandlers() {
	e.Events.Attach(reportHooks{e})
}

func (h reportHooks) UnitsCreated(evt UnitsCreatedEvent) {
	metrics.UnitsCreatedTotal.Add(float64(evt.Count))
	h.e.refreshCounts()

	payload, err := messaging.NewUnitsCreatedReport(h.e.cfg.Factory, evt.OrderItemID, evt.Count)
	if err != nil {
		log.Printf("build units-created report: %v", err)
		return
	}
	h.e.enqueueReport(payload, messaging.ReportUnitsCreated)
}

func (h reportHooks) StageCompleted(evt StageCompletedEvent) {
	metrics.StageCompletionsTotal.WithLabelValues(evt.Stage, strconv.FormatBool(evt.Override)).Inc()
	h.e.refreshCounts()

	payload, err := messaging.NewStageReport(h.e.cfg.Factory, evt.UnitID, evt.UniqueCode,
		evt.Stage, evt.WorkerID, evt.Override)
	if err != nil {
		log.Printf("build stage report: %v", err)
		return
	}
	h.e.enqueueReport(payload, messaging.ReportStageCompleted)
}

func (h reportHooks) StageUndone(evt StageUndoneEvent) {
	metrics.StageUndosTotal.WithLabelValues(evt.Stage).Inc()
	h.e.refreshCounts()

	payload, err := messaging.NewStageReport(h.e.cfg.Factory, evt.UnitID, evt.UniqueCode,
		evt.Stage, 0, false)
	if err != nil {
		log.Printf("build undo report: %v", err)
		return
	}
	h.e.enqueueReport(payload, messaging.ReportStageUndone)
}

func (e *Engine) enqueueReport(payload []byte, msgType string) {
	if _, err := e.db.EnqueueOutbox(e.cfg.Messaging.ReportTopic, payload, msgType); err != nil {
		log.Printf("enqueue %s report: %v", msgType, err)
	}
}

func (e *Engine) refreshCounts() {
	if e.counts == nil {
		return
	}
	if err := e.counts.Refresh(context.Background()); err != nil {
		log.Printf("refresh live counts: %v", err)
	}
}
