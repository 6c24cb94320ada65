package messaging

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"paneltrack/config"
	"paneltrack/store"
	"paneltrack/tracker"
)

// OrderReleased is the inbound message the order subsystem publishes
// when an order item enters production. Receiving one registers the
// item locally and spawns its tracking units.
type OrderReleased struct {
	ID          string  `json:"id"`
	Factory     string  `json:"factory"`
	OrderNumber string  `json:"order_number"`
	ItemNumber  int     `json:"item_number"`
	DesignName  string  `json:"design_name"`
	DesignType  string  `json:"design_type"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	WidthCode   float64 `json:"width_code"`
	HeightCode  float64 `json:"height_code"`
	Quantity    int     `json:"quantity"`
}

// Subscriber listens for inbound order releases and routes them to the
// production tracker.
type Subscriber struct {
	client *Client
	cfg    *config.Config
	db     *store.DB
	mgr    *tracker.Manager
}

// NewSubscriber creates an inbound order-release subscriber.
func NewSubscriber(client *Client, cfg *config.Config, db *store.DB, mgr *tracker.Manager) *Subscriber {
	return &Subscriber{
		client: client,
		cfg:    cfg,
		db:     db,
		mgr:    mgr,
	}
}

// Start subscribes to the orders topic and begins processing releases.
func (s *Subscriber) Start() error {
	return s.client.Subscribe(s.cfg.Messaging.OrdersTopic, s.HandleMessage)
}

// HandleMessage processes one inbound order release. Brokers may
// redeliver, so the whole path is idempotent: the item is keyed on
// (order_number, item_number) and a replayed release returns the
// units already spawned.
func (s *Subscriber) HandleMessage(payload []byte) {
	var rel OrderReleased
	if err := json.Unmarshal(payload, &rel); err != nil {
		log.Printf("unmarshal order release: %v", err)
		return
	}

	// Filter: only process releases addressed to this factory.
	if rel.Factory != "" && rel.Factory != s.cfg.Factory {
		return
	}
	if rel.OrderNumber == "" || rel.Quantity <= 0 {
		log.Printf("order release %s: missing order number or quantity", rel.ID)
		return
	}

	item, err := s.ensureItem(&rel)
	if err != nil {
		log.Printf("order release %s-%d: %v", rel.OrderNumber, rel.ItemNumber, err)
		return
	}

	units, err := s.mgr.CreateUnits(item.ID, rel.Quantity)
	if err != nil {
		log.Printf("create units for %s-%d: %v", rel.OrderNumber, rel.ItemNumber, err)
		return
	}
	log.Printf("order release %s-%d: tracking %d units", rel.OrderNumber, rel.ItemNumber, len(units))
}

func (s *Subscriber) ensureItem(rel *OrderReleased) (*store.OrderItem, error) {
	item, err := s.db.GetOrderItemByNumber(rel.OrderNumber, rel.ItemNumber)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup order item: %w", err)
	}

	item = &store.OrderItem{
		OrderNumber: rel.OrderNumber,
		ItemNumber:  rel.ItemNumber,
		DesignName:  rel.DesignName,
		DesignType:  rel.DesignType,
		Category:    rel.Category,
		ImageURL:    rel.ImageURL,
		WidthCode:   rel.WidthCode,
		HeightCode:  rel.HeightCode,
		Quantity:    rel.Quantity,
	}
	if err := s.db.CreateOrderItem(item); err != nil {
		return nil, err
	}
	return item, nil
}
