package store

// SheetSize is one candidate raw-sheet size in the factory blank pool.
type SheetSize struct {
	ID        int64   `json:"id"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	SortOrder int     `json:"sort_order"`
	Active    bool    `json:"active"`
}

// ListActiveSheets returns the active blank pool in sort order. The
// optimizer's tie-break follows this order.
func (db *DB) ListActiveSheets() ([]*SheetSize, error) {
	rows, err := db.Query(`SELECT id, width, height, sort_order, active FROM sheet_sizes WHERE active = ` + boolLit(db.dialect, true) + ` ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sheets []*SheetSize
	for rows.Next() {
		s := &SheetSize{}
		if err := rows.Scan(&s.ID, &s.Width, &s.Height, &s.SortOrder, &s.Active); err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

func (db *DB) ListSheets() ([]*SheetSize, error) {
	rows, err := db.Query(`SELECT id, width, height, sort_order, active FROM sheet_sizes ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sheets []*SheetSize
	for rows.Next() {
		s := &SheetSize{}
		if err := rows.Scan(&s.ID, &s.Width, &s.Height, &s.SortOrder, &s.Active); err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

func (db *DB) CreateSheet(s *SheetSize) error {
	id, err := db.insertID(`INSERT INTO sheet_sizes (width, height, sort_order, active) VALUES (?, ?, ?, ?)`,
		s.Width, s.Height, s.SortOrder, s.Active)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (db *DB) UpdateSheet(s *SheetSize) error {
	_, err := db.Exec(db.Q(`UPDATE sheet_sizes SET width=?, height=?, sort_order=?, active=? WHERE id=?`),
		s.Width, s.Height, s.SortOrder, s.Active, s.ID)
	return err
}

func (db *DB) DeleteSheet(id int64) error {
	_, err := db.Exec(db.Q(`DELETE FROM sheet_sizes WHERE id=?`), id)
	return err
}
