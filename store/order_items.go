package store

import "time"

// OrderItem is one ordered line item: a design at a size, times a
// quantity. Order intake owns these rows; this system reads them for
// grouping, display annotations and the blank-size margin lookup, and
// expands them into production units when an order enters production.
type OrderItem struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	ItemNumber  int       `json:"item_number"`
	DesignName  string    `json:"design_name"`
	DesignType  string    `json:"design_type"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	WidthCode   float64   `json:"width_code"`
	HeightCode  float64   `json:"height_code"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

const orderItemCols = `id, order_number, item_number, design_name, design_type, category, image_url, width_code, height_code, quantity, created_at`

func scanOrderItem(row interface{ Scan(...any) error }) (*OrderItem, error) {
	it := &OrderItem{}
	var createdAt any
	if err := row.Scan(&it.ID, &it.OrderNumber, &it.ItemNumber, &it.DesignName, &it.DesignType,
		&it.Category, &it.ImageURL, &it.WidthCode, &it.HeightCode, &it.Quantity, &createdAt); err != nil {
		return nil, err
	}
	it.CreatedAt = parseTime(createdAt)
	return it, nil
}

func (db *DB) CreateOrderItem(it *OrderItem) error {
	id, err := db.insertID(`INSERT INTO order_items (order_number, item_number, design_name, design_type, category, image_url, width_code, height_code, quantity) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.OrderNumber, it.ItemNumber, it.DesignName, it.DesignType, it.Category, it.ImageURL, it.WidthCode, it.HeightCode, it.Quantity)
	if err != nil {
		return err
	}
	it.ID = id
	return nil
}

func (db *DB) GetOrderItem(id int64) (*OrderItem, error) {
	return scanOrderItem(db.QueryRow(db.Q(`SELECT `+orderItemCols+` FROM order_items WHERE id = ?`), id))
}

// GetOrderItemByNumber looks up an item by its order number and item
// number, the pair the order subsystem keys on.
func (db *DB) GetOrderItemByNumber(orderNumber string, itemNumber int) (*OrderItem, error) {
	return scanOrderItem(db.QueryRow(db.Q(`SELECT `+orderItemCols+` FROM order_items WHERE order_number = ? AND item_number = ?`), orderNumber, itemNumber))
}

func (db *DB) ListOrderItems() ([]*OrderItem, error) {
	rows, err := db.Query(`SELECT ` + orderItemCols + ` FROM order_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
