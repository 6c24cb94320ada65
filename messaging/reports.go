package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report types carried in the outbox msg_type column.
const (
	ReportStageCompleted = "stage_completed"
	ReportStageUndone    = "stage_undone"
	ReportUnitsCreated   = "units_created"
)

// StageReport is one completion or undo published to the dashboards.
// Consumers dedupe on ID after a redelivery.
type StageReport struct {
	ID         string    `json:"id"`
	Factory    string    `json:"factory"`
	UnitID     int64     `json:"unit_id"`
	UniqueCode string    `json:"unique_code"`
	Stage      string    `json:"stage"`
	WorkerID   int64     `json:"worker_id,omitempty"`
	Override   bool      `json:"override,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// UnitsCreatedReport announces a production start.
type UnitsCreatedReport struct {
	ID          string    `json:"id"`
	Factory     string    `json:"factory"`
	OrderItemID int64     `json:"order_item_id"`
	Count       int       `json:"count"`
	ReportedAt  time.Time `json:"reported_at"`
}

// NewStageReport builds a report with a fresh message id.
func NewStageReport(factory string, unitID int64, uniqueCode, stageLabel string, workerID int64, override bool) ([]byte, error) {
	return json.Marshal(StageReport{
		ID:         uuid.NewString(),
		Factory:    factory,
		UnitID:     unitID,
		UniqueCode: uniqueCode,
		Stage:      stageLabel,
		WorkerID:   workerID,
		Override:   override,
		ReportedAt: time.Now(),
	})
}

// NewUnitsCreatedReport builds a production-start report.
func NewUnitsCreatedReport(factory string, orderItemID int64, count int) ([]byte, error) {
	return json.Marshal(UnitsCreatedReport{
		ID:          uuid.NewString(),
		Factory:     factory,
		OrderItemID: orderItemID,
		Count:       count,
		ReportedAt:  time.Now(),
	})
}
