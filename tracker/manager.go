package tracker

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"paneltrack/stage"
	"paneltrack/store"
)

// SubMarker selects one side-step of the two-sided foil workflow.
type SubMarker string

const (
	SubNone          SubMarker = ""
	SubFrontPick     SubMarker = "front-pick"
	SubFrontPickUndo SubMarker = "front-pick-undo"
	SubBackPick      SubMarker = "back-pick"
	SubBackPickUndo  SubMarker = "back-pick-undo"
	SubFrontDone     SubMarker = "front-done"
	SubBackDone      SubMarker = "back-done"
)

// Audit labels for foil sub-steps. Primary stages are recorded under
// their stage name.
const (
	LabelFoilFrontPick = "foil_front_pick"
	LabelFoilBackPick  = "foil_back_pick"
	LabelFoilFrontDone = "foil_front_done"
	LabelFoilBackDone  = "foil_back_done"
)

// Location is the latitude/longitude captured at completion time.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Manager owns per-unit production state and validates every
// transition. Writes to one unit are serialized through a per-unit
// mutex so two workers cannot both pass a dependency check and
// double-apply a completion.
type Manager struct {
	db      *store.DB
	emitter EventEmitter

	mu        sync.Mutex
	unitLocks map[int64]*sync.Mutex
}

// NewManager creates a production unit manager.
func NewManager(db *store.DB, emitter EventEmitter) *Manager {
	return &Manager{
		db:        db,
		emitter:   emitter,
		unitLocks: make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) lockUnit(unitID int64) func() {
	m.mu.Lock()
	l, ok := m.unitLocks[unitID]
	if !ok {
		l = &sync.Mutex{}
		m.unitLocks[unitID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateUnits expands an order item into one unit per quantity,
// numbered 1..quantity. Creation is idempotent: if units already exist
// for the item, the existing units are returned and nothing is written,
// so a retried production-start event is harmless.
func (m *Manager) CreateUnits(orderItemID int64, quantity int) ([]*store.ProductionUnit, error) {
	item, err := m.db.GetOrderItem(orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "order item", ID: orderItemID}
		}
		return nil, fmt.Errorf("load order item: %w", err)
	}
	if quantity <= 0 {
		quantity = item.Quantity
	}

	existing, err := m.db.CountUnitsForItem(orderItemID)
	if err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}
	if existing > 0 {
		// Duplicate creation is a replay, not an error.
		return m.db.ListUnitsByOrderItem(orderItemID)
	}

	if err := m.db.CreateUnits(item, quantity); err != nil {
		return nil, fmt.Errorf("create units: %w", err)
	}
	m.emitter.EmitUnitsCreated(orderItemID, quantity)
	return m.db.ListUnitsByOrderItem(orderItemID)
}

// Complete applies one stage completion by a worker. Completing an
// already-done stage is a no-op success so duplicate offline replays
// stay harmless. All rejections use the named error taxonomy.
func (m *Manager) Complete(unitID, workerID int64, s stage.Stage, marker SubMarker, loc Location) (*store.ProductionUnit, error) {
	if !stage.Valid(s) {
		return nil, fmt.Errorf("unknown stage %q", s)
	}
	worker, err := m.db.GetWorker(workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "worker", ID: workerID}
		}
		return nil, fmt.Errorf("load worker: %w", err)
	}
	roleStage, ok := stage.ForRole(worker.Role)
	if !ok || roleStage != s {
		return nil, &RoleMismatchError{Role: worker.Role, Stage: s}
	}

	unlock := m.lockUnit(unitID)
	defer unlock()

	unit, err := m.getUnit(unitID)
	if err != nil {
		return nil, err
	}

	if s == stage.FoilPasting {
		return m.completeFoil(unit, worker, marker, loc)
	}

	if unit.Flags().Done(s) {
		return unit, nil
	}
	if unit.IsBlocked {
		return nil, &BlockedError{UnitID: unit.ID}
	}
	if missing := stage.Missing(s, unit.Flags()); len(missing) > 0 {
		return nil, &DependencyNotMetError{Stage: s, Missing: missing}
	}

	setStageDone(unit, s)
	if err := m.db.UpdateUnitFlags(unit); err != nil {
		return nil, fmt.Errorf("update unit flags: %w", err)
	}
	if err := m.appendRecord(unit.ID, worker.ID, string(s), false, loc); err != nil {
		return nil, err
	}
	m.emitter.EmitStageCompleted(unit, worker.ID, string(s), false)
	return unit, nil
}

// completeFoil handles the two-sided foil pasting sub-workflow. The
// caller holds the unit lock.
func (m *Manager) completeFoil(unit *store.ProductionUnit, worker *store.Worker, marker SubMarker, loc Location) (*store.ProductionUnit, error) {
	type side struct {
		picked    *bool
		done      *bool
		pickLabel string
		doneLabel string
		name      string
	}
	front := side{&unit.FoilFrontPicked, &unit.FoilFrontDone, LabelFoilFrontPick, LabelFoilFrontDone, "front"}
	back := side{&unit.FoilBackPicked, &unit.FoilBackDone, LabelFoilBackPick, LabelFoilBackDone, "back"}

	var sd side
	switch marker {
	case SubFrontPick, SubFrontPickUndo, SubFrontDone:
		sd = front
	case SubBackPick, SubBackPickUndo, SubBackDone:
		sd = back
	case SubNone:
		return nil, &PrerequisiteError{Reason: "foil pasting requires a sub-stage marker"}
	default:
		return nil, fmt.Errorf("unknown foil sub-marker %q", marker)
	}

	switch marker {
	case SubFrontPick, SubBackPick:
		if *sd.picked {
			return unit, nil
		}
		if unit.IsBlocked {
			return nil, &BlockedError{UnitID: unit.ID}
		}
		*sd.picked = true
		if err := m.db.UpdateUnitFlags(unit); err != nil {
			return nil, fmt.Errorf("update unit flags: %w", err)
		}
		if err := m.appendRecord(unit.ID, worker.ID, sd.pickLabel, false, loc); err != nil {
			return nil, err
		}
		m.emitter.EmitStageCompleted(unit, worker.ID, sd.pickLabel, false)
		return unit, nil

	case SubFrontPickUndo, SubBackPickUndo:
		if *sd.done {
			return nil, &PrerequisiteError{Reason: fmt.Sprintf("%s side is already pasted; undo that first", sd.name)}
		}
		if !*sd.picked {
			return unit, nil
		}
		*sd.picked = false
		if err := m.db.UpdateUnitFlags(unit); err != nil {
			return nil, fmt.Errorf("update unit flags: %w", err)
		}
		if id, err := m.db.LatestRecordID(unit.ID, sd.pickLabel); err == nil && id != 0 {
			m.db.DeleteRecord(id)
		}
		m.emitter.EmitStageUndone(unit, sd.pickLabel)
		return unit, nil

	default: // SubFrontDone, SubBackDone
		if *sd.done {
			return unit, nil
		}
		if unit.IsBlocked {
			return nil, &BlockedError{UnitID: unit.ID}
		}
		if !*sd.picked {
			return nil, &PrerequisiteError{Reason: fmt.Sprintf("%s sheet has not been picked", sd.name)}
		}
		*sd.done = true
		unit.IsFoilDone = unit.FoilFrontDone && unit.FoilBackDone
		if err := m.db.UpdateUnitFlags(unit); err != nil {
			return nil, fmt.Errorf("update unit flags: %w", err)
		}
		if err := m.appendRecord(unit.ID, worker.ID, sd.doneLabel, false, loc); err != nil {
			return nil, err
		}
		m.emitter.EmitStageCompleted(unit, worker.ID, sd.doneLabel, false)
		return unit, nil
	}
}

// Undo reverses the most recent record for its (unit, stage) pair:
// clears the corresponding flag(s) and deletes the record. Older
// records cannot be undone, so history never silently reorders.
func (m *Manager) Undo(recordID int64) (*store.ProductionUnit, error) {
	rec, err := m.db.GetRecord(recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "record", ID: recordID}
		}
		return nil, fmt.Errorf("load record: %w", err)
	}

	unlock := m.lockUnit(rec.UnitID)
	defer unlock()

	unit, err := m.getUnit(rec.UnitID)
	if err != nil {
		return nil, err
	}

	latest, err := m.db.LatestRecordID(rec.UnitID, rec.Stage)
	if err != nil {
		return nil, fmt.Errorf("find latest record: %w", err)
	}
	if latest != rec.ID {
		return nil, &NotMostRecentError{RecordID: rec.ID}
	}

	switch rec.Stage {
	case string(stage.PVCCut):
		unit.IsPVCDone = false
	case string(stage.Emboss):
		unit.IsEmbossDone = false
	case string(stage.DoorMaking):
		unit.IsDoorMade = false
	case string(stage.Packing):
		unit.IsPacked = false
	case string(stage.FoilPasting):
		// Override record: the forced completion set the whole
		// sub-workflow, so the undo clears all of it.
		unit.IsFoilDone = false
		unit.FoilFrontPicked = false
		unit.FoilBackPicked = false
		unit.FoilFrontDone = false
		unit.FoilBackDone = false
	case LabelFoilFrontDone:
		unit.FoilFrontDone = false
		unit.IsFoilDone = false
	case LabelFoilBackDone:
		unit.FoilBackDone = false
		unit.IsFoilDone = false
	case LabelFoilFrontPick:
		if unit.FoilFrontDone {
			return nil, &PrerequisiteError{Reason: "front side is already pasted; undo that first"}
		}
		unit.FoilFrontPicked = false
	case LabelFoilBackPick:
		if unit.FoilBackDone {
			return nil, &PrerequisiteError{Reason: "back side is already pasted; undo that first"}
		}
		unit.FoilBackPicked = false
	default:
		return nil, fmt.Errorf("record %d has unknown stage label %q", rec.ID, rec.Stage)
	}

	if err := m.db.UpdateUnitFlags(unit); err != nil {
		return nil, fmt.Errorf("update unit flags: %w", err)
	}
	if err := m.db.DeleteRecord(rec.ID); err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}
	m.emitter.EmitStageUndone(unit, rec.Stage)
	return unit, nil
}

// Override forces a stage flag true, bypassing dependency checks.
// Supervisor-only; the audit record is tagged as an override.
func (m *Manager) Override(unitID, workerID int64, target stage.Stage, loc Location) (*store.ProductionUnit, error) {
	if !stage.Valid(target) {
		return nil, fmt.Errorf("unknown stage %q", target)
	}
	worker, err := m.db.GetWorker(workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "worker", ID: workerID}
		}
		return nil, fmt.Errorf("load worker: %w", err)
	}
	if worker.Role != stage.RoleAdmin {
		return nil, &RoleMismatchError{Role: worker.Role, Stage: target}
	}

	unlock := m.lockUnit(unitID)
	defer unlock()

	unit, err := m.getUnit(unitID)
	if err != nil {
		return nil, err
	}
	if unit.Flags().Done(target) {
		return unit, nil
	}

	setStageDone(unit, target)
	if target == stage.FoilPasting {
		unit.FoilFrontPicked = true
		unit.FoilBackPicked = true
		unit.FoilFrontDone = true
		unit.FoilBackDone = true
	}
	if err := m.db.UpdateUnitFlags(unit); err != nil {
		return nil, fmt.Errorf("update unit flags: %w", err)
	}
	if err := m.appendRecord(unit.ID, worker.ID, string(target), true, loc); err != nil {
		return nil, err
	}
	m.emitter.EmitStageCompleted(unit, worker.ID, string(target), true)
	return unit, nil
}

// BatchOutcome is the per-unit result of a batch completion.
type BatchOutcome struct {
	UnitID int64                 `json:"unit_id"`
	OK     bool                  `json:"ok"`
	Error  string                `json:"error,omitempty"`
	Unit   *store.ProductionUnit `json:"unit,omitempty"`
}

// CompleteBatch applies the worker's stage to each unit with one shared
// location. A foil worker scanning a cart passes the sub-marker that
// applies to every unit on it; other stages use SubNone. Best-effort
// per unit: one rejection never aborts the rest.
func (m *Manager) CompleteBatch(workerID int64, unitIDs []int64, marker SubMarker, loc Location) ([]BatchOutcome, error) {
	worker, err := m.db.GetWorker(workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "worker", ID: workerID}
		}
		return nil, fmt.Errorf("load worker: %w", err)
	}
	s, ok := stage.ForRole(worker.Role)
	if !ok {
		return nil, &RoleMismatchError{Role: worker.Role}
	}

	outcomes := make([]BatchOutcome, 0, len(unitIDs))
	for _, id := range unitIDs {
		unit, err := m.Complete(id, workerID, s, marker, loc)
		if err != nil {
			outcomes = append(outcomes, BatchOutcome{UnitID: id, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, BatchOutcome{UnitID: id, OK: true, Unit: unit})
	}
	return outcomes, nil
}

// SetBlocked toggles the manual hold on a unit. Holds are independent
// of stage state.
func (m *Manager) SetBlocked(unitID int64, blocked bool) (*store.ProductionUnit, error) {
	unlock := m.lockUnit(unitID)
	defer unlock()

	unit, err := m.getUnit(unitID)
	if err != nil {
		return nil, err
	}
	if unit.IsBlocked == blocked {
		return unit, nil
	}
	if err := m.db.SetUnitBlocked(unitID, blocked); err != nil {
		return nil, fmt.Errorf("set blocked: %w", err)
	}
	unit.IsBlocked = blocked
	return unit, nil
}

func (m *Manager) getUnit(unitID int64) (*store.ProductionUnit, error) {
	unit, err := m.db.GetUnit(unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "unit", ID: unitID}
		}
		return nil, fmt.Errorf("load unit: %w", err)
	}
	return unit, nil
}

func (m *Manager) appendRecord(unitID, workerID int64, label string, override bool, loc Location) error {
	r := &store.ProcessRecord{
		UnitID:     unitID,
		WorkerID:   workerID,
		Stage:      label,
		IsOverride: override,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
	}
	if err := m.db.AppendRecord(r); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func setStageDone(u *store.ProductionUnit, s stage.Stage) {
	switch s {
	case stage.PVCCut:
		u.IsPVCDone = true
	case stage.FoilPasting:
		u.IsFoilDone = true
	case stage.Emboss:
		u.IsEmbossDone = true
	case stage.DoorMaking:
		u.IsDoorMade = true
	case stage.Packing:
		u.IsPacked = true
	}
}
