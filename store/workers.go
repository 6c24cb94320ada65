package store

import "time"

// Worker is a station operator or supervisor. The role names the stage
// the worker runs, or "admin". PINs are stored bcrypt-hashed.
type Worker struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PinHash   string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

const workerCols = `id, name, role, pin_hash, is_active, created_at`

func scanWorker(row interface{ Scan(...any) error }) (*Worker, error) {
	w := &Worker{}
	var createdAt any
	if err := row.Scan(&w.ID, &w.Name, &w.Role, &w.PinHash, &w.IsActive, &createdAt); err != nil {
		return nil, err
	}
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}

func (db *DB) CreateWorker(w *Worker) error {
	id, err := db.insertID(`INSERT INTO workers (name, role, pin_hash, is_active) VALUES (?, ?, ?, ?)`,
		w.Name, w.Role, w.PinHash, w.IsActive)
	if err != nil {
		return err
	}
	w.ID = id
	return nil
}

func (db *DB) GetWorker(id int64) (*Worker, error) {
	return scanWorker(db.QueryRow(db.Q(`SELECT `+workerCols+` FROM workers WHERE id = ?`), id))
}

func (db *DB) GetWorkerByName(name string) (*Worker, error) {
	return scanWorker(db.QueryRow(db.Q(`SELECT `+workerCols+` FROM workers WHERE name = ?`), name))
}

func (db *DB) ListWorkers() ([]*Worker, error) {
	rows, err := db.Query(`SELECT ` + workerCols + ` FROM workers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var workers []*Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

func (db *DB) UpdateWorker(w *Worker) error {
	_, err := db.Exec(db.Q(`UPDATE workers SET name=?, role=?, is_active=? WHERE id=?`),
		w.Name, w.Role, w.IsActive, w.ID)
	return err
}

func (db *DB) SetWorkerPin(id int64, pinHash string) error {
	_, err := db.Exec(db.Q(`UPDATE workers SET pin_hash=? WHERE id=?`), pinHash, id)
	return err
}
