package store

import (
	"fmt"
	"time"

	"paneltrack/stage"
)

// ProductionUnit is one physical door panel tracked through the stages.
type ProductionUnit struct {
	ID          int64  `json:"id"`
	OrderItemID int64  `json:"order_item_id"`
	UnitNumber  int    `json:"unit_number"`
	UniqueCode  string `json:"unique_code"`

	IsPVCDone    bool `json:"is_pvc_done"`
	IsFoilDone   bool `json:"is_foil_done"`
	IsEmbossDone bool `json:"is_emboss_done"`
	IsDoorMade   bool `json:"is_door_made"`
	IsPacked     bool `json:"is_packed"`

	FoilFrontPicked bool `json:"foil_front_picked"`
	FoilBackPicked  bool `json:"foil_back_picked"`
	FoilFrontDone   bool `json:"foil_front_done"`
	FoilBackDone    bool `json:"foil_back_done"`

	IsBlocked bool `json:"is_blocked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flags returns the primary completion flags as a stage.Flags value.
func (u *ProductionUnit) Flags() stage.Flags {
	return stage.Flags{
		PVCDone:    u.IsPVCDone,
		FoilDone:   u.IsFoilDone,
		EmbossDone: u.IsEmbossDone,
		DoorMade:   u.IsDoorMade,
		Packed:     u.IsPacked,
	}
}

// CurrentStage returns the first incomplete stage in pipeline order, or
// "" when the unit is packed. Always derived from the flags, never stored.
func (u *ProductionUnit) CurrentStage() stage.Stage {
	s, ok := stage.Current(u.Flags())
	if !ok {
		return ""
	}
	return s
}

const unitCols = `id, order_item_id, unit_number, unique_code,
	is_pvc_done, is_foil_done, is_emboss_done, is_door_made, is_packed,
	foil_front_picked, foil_back_picked, foil_front_done, foil_back_done,
	is_blocked, created_at, updated_at`

func scanUnit(row interface{ Scan(...any) error }) (*ProductionUnit, error) {
	u := &ProductionUnit{}
	var createdAt, updatedAt any
	if err := row.Scan(&u.ID, &u.OrderItemID, &u.UnitNumber, &u.UniqueCode,
		&u.IsPVCDone, &u.IsFoilDone, &u.IsEmbossDone, &u.IsDoorMade, &u.IsPacked,
		&u.FoilFrontPicked, &u.FoilBackPicked, &u.FoilFrontDone, &u.FoilBackDone,
		&u.IsBlocked, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

// CreateUnits bulk-inserts quantity units for an order item, numbered
// 1..quantity, inside one transaction. The unique code derives from the
// order, item and unit numbers.
func (db *DB) CreateUnits(item *OrderItem, quantity int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin create units: %w", err)
	}
	defer tx.Rollback()

	for n := 1; n <= quantity; n++ {
		code := fmt.Sprintf("%s-%d-%d", item.OrderNumber, item.ItemNumber, n)
		if _, err := tx.Exec(db.Q(`INSERT INTO production_units (order_item_id, unit_number, unique_code) VALUES (?, ?, ?)`),
			item.ID, n, code); err != nil {
			return fmt.Errorf("insert unit %s: %w", code, err)
		}
	}
	return tx.Commit()
}

// CountUnitsForItem returns how many units exist for an order item.
func (db *DB) CountUnitsForItem(orderItemID int64) (int, error) {
	var n int
	err := db.QueryRow(db.Q(`SELECT COUNT(*) FROM production_units WHERE order_item_id = ?`), orderItemID).Scan(&n)
	return n, err
}

func (db *DB) GetUnit(id int64) (*ProductionUnit, error) {
	return scanUnit(db.QueryRow(db.Q(`SELECT `+unitCols+` FROM production_units WHERE id = ?`), id))
}

func (db *DB) GetUnitByCode(code string) (*ProductionUnit, error) {
	return scanUnit(db.QueryRow(db.Q(`SELECT `+unitCols+` FROM production_units WHERE unique_code = ?`), code))
}

func (db *DB) ListUnitsByOrderItem(orderItemID int64) ([]*ProductionUnit, error) {
	rows, err := db.Query(db.Q(`SELECT `+unitCols+` FROM production_units WHERE order_item_id = ? ORDER BY unit_number`), orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []*ProductionUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// ListOpenUnits returns every unit that has not been packed, ordered by
// order item then unit number. Packed units drop out of active task
// lists but remain queryable for history.
func (db *DB) ListOpenUnits() ([]*ProductionUnit, error) {
	rows, err := db.Query(db.Q(`SELECT ` + unitCols + ` FROM production_units WHERE is_packed = ` + boolLit(db.dialect, false) + ` ORDER BY order_item_id, unit_number`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []*ProductionUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// UpdateUnitFlags writes every completion flag of the unit.
func (db *DB) UpdateUnitFlags(u *ProductionUnit) error {
	_, err := db.Exec(db.Q(`UPDATE production_units SET
		is_pvc_done=?, is_foil_done=?, is_emboss_done=?, is_door_made=?, is_packed=?,
		foil_front_picked=?, foil_back_picked=?, foil_front_done=?, foil_back_done=?,
		updated_at=datetime('now','localtime')
		WHERE id=?`),
		u.IsPVCDone, u.IsFoilDone, u.IsEmbossDone, u.IsDoorMade, u.IsPacked,
		u.FoilFrontPicked, u.FoilBackPicked, u.FoilFrontDone, u.FoilBackDone,
		u.ID)
	return err
}

// SetUnitBlocked toggles the manual hold on a unit.
func (db *DB) SetUnitBlocked(id int64, blocked bool) error {
	_, err := db.Exec(db.Q(`UPDATE production_units SET is_blocked=?, updated_at=datetime('now','localtime') WHERE id=?`), blocked, id)
	return err
}

// StageCounts returns how many open units currently sit at each stage,
// keyed by the first stage in pipeline order whose flag is unset.
// Packed units do not appear. For factory-floor dashboards.
func (db *DB) StageCounts() (map[stage.Stage]int, error) {
	units, err := db.ListOpenUnits()
	if err != nil {
		return nil, err
	}
	counts := make(map[stage.Stage]int, len(stage.Pipeline()))
	for _, s := range stage.Pipeline() {
		counts[s] = 0
	}
	for _, u := range units {
		if s, ok := stage.Current(u.Flags()); ok {
			counts[s]++
		}
	}
	return counts, nil
}
