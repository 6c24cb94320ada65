package tracker

import "paneltrack/store"

// EventEmitter is the interface the tracker uses to emit events.
type EventEmitter interface {
	EmitUnitsCreated(orderItemID int64, count int)
	EmitStageCompleted(unit *store.ProductionUnit, workerID int64, stageLabel string, override bool)
	EmitStageUndone(unit *store.ProductionUnit, stageLabel string)
}
