package offline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Action types accepted by the queue.
const (
	ActionComplete = "complete"
	ActionBatch    = "batch"
)

// CompletePayload is a single-unit completion captured while offline.
type CompletePayload struct {
	UnitID    int64   `json:"unit_id"`
	WorkerID  int64   `json:"worker_id"`
	Stage     string  `json:"stage"`
	SubMarker string  `json:"sub_marker,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BatchPayload is a batch completion captured while offline. SubMarker
// is set when a foil worker scans a whole cart of one sub-step.
type BatchPayload struct {
	WorkerID  int64   `json:"worker_id"`
	UnitIDs   []int64 `json:"unit_ids"`
	SubMarker string  `json:"sub_marker,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Action is one queued station action awaiting replay.
type Action struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue is the station-local action log. Actions append without any
// network access and replay strictly in enqueue order. The backing
// file belongs to one station device and is never shared.
type Queue struct {
	db *sql.DB
}

// OpenQueue opens (or creates) the local queue database.
func OpenQueue(path string) (*Queue, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS offline_actions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		action_type TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime'))
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate queue db: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error { return q.db.Close() }

// Enqueue appends an action with a fresh client-generated id.
func (q *Queue) Enqueue(actionType string, payload any) (*Action, error) {
	switch actionType {
	case ActionComplete, ActionBatch:
	default:
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	a := &Action{ID: uuid.NewString(), Type: actionType, Payload: body, CreatedAt: time.Now()}
	res, err := q.db.Exec(`INSERT INTO offline_actions (id, action_type, payload) VALUES (?, ?, ?)`,
		a.ID, a.Type, a.Payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue action: %w", err)
	}
	a.Seq, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns all queued actions in enqueue order.
func (q *Queue) List() ([]Action, error) {
	rows, err := q.db.Query(`SELECT seq, id, action_type, payload, created_at FROM offline_actions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []Action
	for rows.Next() {
		var a Action
		var createdAt string
		if err := rows.Scan(&a.Seq, &a.ID, &a.Type, &a.Payload, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.ParseInLocation("2006-01-02 15:04:05", createdAt, time.Local)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Remove deletes an action once applied or definitively rejected.
func (q *Queue) Remove(seq int64) error {
	_, err := q.db.Exec(`DELETE FROM offline_actions WHERE seq = ?`, seq)
	return err
}

// Len returns the number of queued actions.
func (q *Queue) Len() (int, error) {
	var n int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM offline_actions`).Scan(&n)
	return n, err
}
