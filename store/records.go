package store

import (
	"database/sql"
	"time"
)

// ProcessRecord is one immutable audit entry: a worker completed a
// stage (or sub-stage) on a unit at a place and time. Records are only
// ever removed by an explicit undo of the most recent entry.
type ProcessRecord struct {
	ID         int64     `json:"id"`
	UnitID     int64     `json:"unit_id"`
	WorkerID   int64     `json:"worker_id"`
	Stage      string    `json:"stage"`
	IsOverride bool      `json:"is_override"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CreatedAt  time.Time `json:"created_at"`
}

// insertID runs an insert and returns the generated id on both dialects.
func (db *DB) insertID(query string, args ...any) (int64, error) {
	if db.driver == "postgres" {
		var id int64
		err := db.QueryRow(db.Q(query+` RETURNING id`), args...).Scan(&id)
		return id, err
	}
	res, err := db.Exec(db.Q(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AppendRecord inserts a process record and fills in its id.
func (db *DB) AppendRecord(r *ProcessRecord) error {
	id, err := db.insertID(`INSERT INTO process_records (unit_id, worker_id, stage, is_override, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?)`,
		r.UnitID, r.WorkerID, r.Stage, r.IsOverride, r.Latitude, r.Longitude)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

const recordCols = `id, unit_id, worker_id, stage, is_override, latitude, longitude, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*ProcessRecord, error) {
	r := &ProcessRecord{}
	var createdAt any
	if err := row.Scan(&r.ID, &r.UnitID, &r.WorkerID, &r.Stage, &r.IsOverride,
		&r.Latitude, &r.Longitude, &createdAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

func (db *DB) GetRecord(id int64) (*ProcessRecord, error) {
	return scanRecord(db.QueryRow(db.Q(`SELECT `+recordCols+` FROM process_records WHERE id = ?`), id))
}

// LatestRecordID returns the id of the newest record for a
// (unit, stage) pair, or 0 when none exists.
func (db *DB) LatestRecordID(unitID int64, stageLabel string) (int64, error) {
	var id int64
	err := db.QueryRow(db.Q(`SELECT id FROM process_records WHERE unit_id = ? AND stage = ? ORDER BY id DESC LIMIT 1`),
		unitID, stageLabel).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

// DeleteRecord removes a record. Only the undo path calls this.
func (db *DB) DeleteRecord(id int64) error {
	_, err := db.Exec(db.Q(`DELETE FROM process_records WHERE id = ?`), id)
	return err
}

// CountUnitStageRecords returns how many records exist for a
// (unit, stage) pair.
func (db *DB) CountUnitStageRecords(unitID int64, stageLabel string) (int, error) {
	var n int
	err := db.QueryRow(db.Q(`SELECT COUNT(*) FROM process_records WHERE unit_id = ? AND stage = ?`),
		unitID, stageLabel).Scan(&n)
	return n, err
}

// ListWorkerRecords returns a worker's records in [from, to), newest first.
func (db *DB) ListWorkerRecords(workerID int64, from, to time.Time) ([]*ProcessRecord, error) {
	rows, err := db.Query(db.Q(`SELECT `+recordCols+` FROM process_records WHERE worker_id = ? AND created_at >= ? AND created_at < ? ORDER BY id DESC`),
		workerID, from.Format("2006-01-02 15:04:05"), to.Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*ProcessRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListUnitRecords returns every record for a unit, newest first.
func (db *DB) ListUnitRecords(unitID int64) ([]*ProcessRecord, error) {
	rows, err := db.Query(db.Q(`SELECT `+recordCols+` FROM process_records WHERE unit_id = ? ORDER BY id DESC`), unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*ProcessRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
