package engine

import "paneltrack/store"

// trackerEmitter adapts the engine's EventBus to the tracker.EventEmitter interface.
type trackerEmitter struct {
	bus *EventBus
}

func (e *trackerEmitter) EmitUnitsCreated(orderItemID int64, count int) {
	e.bus.EmitUnitsCreated(UnitsCreatedEvent{
		OrderItemID: orderItemID, Count: count,
	})
}

func (e *trackerEmitter) EmitStageCompleted(u *store.ProductionUnit, workerID int64, stageLabel string, override bool) {
	e.bus.EmitStageCompleted(StageCompletedEvent{
		UnitID: u.ID, UniqueCode: u.UniqueCode, Stage: stageLabel,
		WorkerID: workerID, Override: override, Packed: u.IsPacked,
	})
}

func (e *trackerEmitter) EmitStageUndone(u *store.ProductionUnit, stageLabel string) {
	e.bus.EmitStageUndone(StageUndoneEvent{
		UnitID: u.ID, UniqueCode: u.UniqueCode, Stage: stageLabel,
	})
}
