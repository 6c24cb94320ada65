package www

import (
	"encoding/json"
	"net/http"

	"paneltrack/store"
)

func (h *Handlers) apiListOrderItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.DB().ListOrderItems()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, items)
}

// apiCreateOrderItem registers a line item handed over by the order
// subsystem and immediately creates its production units.
func (h *Handlers) apiCreateOrderItem(w http.ResponseWriter, r *http.Request) {
	var item store.OrderItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if item.OrderNumber == "" || item.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "order_number and a positive quantity are required")
		return
	}

	if err := h.engine.DB().CreateOrderItem(&item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	units, err := h.engine.Tracker().CreateUnits(item.ID, item.Quantity)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, map[string]any{"item": item, "units": units})
}

func (h *Handlers) apiGetOrderItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order item ID")
		return
	}
	item, err := h.engine.DB().GetOrderItem(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown order item")
		return
	}
	writeJSON(w, item)
}
