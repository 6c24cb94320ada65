package engine

import "time"

// UnitsCreatedEvent fires when an order item enters production and its
// units are spawned.
type UnitsCreatedEvent struct {
	OrderItemID int64     `json:"order_item_id"`
	Count       int       `json:"count"`
	At          time.Time `json:"at"`
}

// StageCompletedEvent fires for every accepted completion, including
// foil sub-steps and supervisor overrides.
type StageCompletedEvent struct {
	UnitID     int64     `json:"unit_id"`
	UniqueCode string    `json:"unique_code"`
	Stage      string    `json:"stage"`
	WorkerID   int64     `json:"worker_id"`
	Override   bool      `json:"override"`
	Packed     bool      `json:"packed"`
	At         time.Time `json:"at"`
}

// StageUndoneEvent fires when a completion is reversed.
type StageUndoneEvent struct {
	UnitID     int64     `json:"unit_id"`
	UniqueCode string    `json:"unique_code"`
	Stage      string    `json:"stage"`
	At         time.Time `json:"at"`
}
