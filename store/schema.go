package store

import "fmt"

func (db *DB) schema() string {
	d := db.dialect
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS workers (
    id         %[1]s,
    name       TEXT NOT NULL UNIQUE,
    role       TEXT NOT NULL,
    pin_hash   TEXT NOT NULL,
    is_active  %[4]s NOT NULL DEFAULT %[6]s,
    created_at %[2]s NOT NULL DEFAULT %[3]s
);

CREATE TABLE IF NOT EXISTS order_items (
    id          %[1]s,
    order_number TEXT NOT NULL,
    item_number  INTEGER NOT NULL DEFAULT 1,
    design_name  TEXT NOT NULL DEFAULT '',
    design_type  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    width_code   %[5]s NOT NULL DEFAULT 0,
    height_code  %[5]s NOT NULL DEFAULT 0,
    quantity     INTEGER NOT NULL DEFAULT 1,
    created_at   %[2]s NOT NULL DEFAULT %[3]s,
    UNIQUE(order_number, item_number)
);

CREATE TABLE IF NOT EXISTS production_units (
    id                %[1]s,
    order_item_id     BIGINT NOT NULL REFERENCES order_items(id),
    unit_number       INTEGER NOT NULL,
    unique_code       TEXT NOT NULL UNIQUE,
    is_pvc_done       %[4]s NOT NULL DEFAULT %[7]s,
    is_foil_done      %[4]s NOT NULL DEFAULT %[7]s,
    is_emboss_done    %[4]s NOT NULL DEFAULT %[7]s,
    is_door_made      %[4]s NOT NULL DEFAULT %[7]s,
    is_packed         %[4]s NOT NULL DEFAULT %[7]s,
    foil_front_picked %[4]s NOT NULL DEFAULT %[7]s,
    foil_back_picked  %[4]s NOT NULL DEFAULT %[7]s,
    foil_front_done   %[4]s NOT NULL DEFAULT %[7]s,
    foil_back_done    %[4]s NOT NULL DEFAULT %[7]s,
    is_blocked        %[4]s NOT NULL DEFAULT %[7]s,
    created_at        %[2]s NOT NULL DEFAULT %[3]s,
    updated_at        %[2]s NOT NULL DEFAULT %[3]s,
    UNIQUE(order_item_id, unit_number)
);
CREATE INDEX IF NOT EXISTS idx_units_order_item ON production_units(order_item_id);
CREATE INDEX IF NOT EXISTS idx_units_packed ON production_units(is_packed);

CREATE TABLE IF NOT EXISTS process_records (
    id          %[1]s,
    unit_id     BIGINT NOT NULL REFERENCES production_units(id),
    worker_id   BIGINT NOT NULL REFERENCES workers(id),
    stage       TEXT NOT NULL,
    is_override %[4]s NOT NULL DEFAULT %[7]s,
    latitude    %[5]s NOT NULL DEFAULT 0,
    longitude   %[5]s NOT NULL DEFAULT 0,
    created_at  %[2]s NOT NULL DEFAULT %[3]s
);
CREATE INDEX IF NOT EXISTS idx_records_unit_stage ON process_records(unit_id, stage);
CREATE INDEX IF NOT EXISTS idx_records_worker ON process_records(worker_id);

CREATE TABLE IF NOT EXISTS sheet_sizes (
    id         %[1]s,
    width      %[5]s NOT NULL,
    height     %[5]s NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    active     %[4]s NOT NULL DEFAULT %[6]s,
    UNIQUE(width, height)
);

CREATE TABLE IF NOT EXISTS outbox (
    id         %[1]s,
    topic      TEXT NOT NULL,
    payload    %[8]s NOT NULL,
    msg_type   TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at %[2]s NOT NULL DEFAULT %[3]s,
    sent_at    %[2]s
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;
`,
		d.AutoIncrementPK(),  // 1
		d.TimestampType(),    // 2
		d.Now(),              // 3
		d.BoolType(),         // 4
		d.RealType(),         // 5
		boolLit(d, true),     // 6
		boolLit(d, false),    // 7
		d.BlobType(),         // 8
	)
}

func boolLit(d Dialect, v bool) string {
	if _, ok := d.(postgresDialect); ok {
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	if v {
		return "1"
	}
	return "0"
}

// defaultSheetPool is the factory-standard blank pool, seeded on first
// migration. Widths and heights are inches.
var defaultSheetPool = [][2]float64{
	{27, 82}, {29, 82}, {32, 82}, {34, 82},
	{36, 82}, {38, 84}, {42, 84}, {48, 96},
}

func (db *DB) migrate() error {
	if _, err := db.Exec(db.schema()); err != nil {
		return err
	}

	// Seed the sheet pool on a fresh database.
	var sheetCount int
	db.QueryRow(`SELECT COUNT(*) FROM sheet_sizes`).Scan(&sheetCount)
	if sheetCount == 0 {
		for i, s := range defaultSheetPool {
			if _, err := db.Exec(db.Q(`INSERT INTO sheet_sizes (width, height, sort_order) VALUES (?, ?, ?)`),
				s[0], s[1], i); err != nil {
				return err
			}
		}
	}
	return nil
}
