package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paneltrack/stage"
	"paneltrack/tracker"
)

type completeRequest struct {
	UnitID    int64   `json:"unit_id"`
	WorkerID  int64   `json:"worker_id"`
	Stage     string  `json:"stage"`
	SubMarker string  `json:"sub_marker,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handlers) apiComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	unit, err := h.engine.Tracker().Complete(req.UnitID, req.WorkerID,
		stage.Stage(req.Stage), tracker.SubMarker(req.SubMarker),
		tracker.Location{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, unit)
}

func (h *Handlers) apiCompleteBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID  int64   `json:"worker_id"`
		UnitIDs   []int64 `json:"unit_ids"`
		SubMarker string  `json:"sub_marker"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.UnitIDs) == 0 {
		writeError(w, http.StatusBadRequest, "unit_ids is empty")
		return
	}

	outcomes, err := h.engine.Tracker().CompleteBatch(req.WorkerID, req.UnitIDs,
		tracker.SubMarker(req.SubMarker),
		tracker.Location{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, outcomes)
}

func (h *Handlers) apiUndo(w http.ResponseWriter, r *http.Request) {
	recordID, err := parseID(r, "recordID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record ID")
		return
	}
	unit, err := h.engine.Tracker().Undo(recordID)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, unit)
}

func (h *Handlers) apiOverride(w http.ResponseWriter, r *http.Request) {
	unitID, err := parseID(r, "unitID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit ID")
		return
	}
	var req struct {
		WorkerID  int64   `json:"worker_id"`
		Stage     string  `json:"stage"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	unit, err := h.engine.Tracker().Override(unitID, req.WorkerID, stage.Stage(req.Stage),
		tracker.Location{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, unit)
}

func (h *Handlers) apiSetBlocked(blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID, err := parseID(r, "unitID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid unit ID")
			return
		}
		unit, err := h.engine.Tracker().SetBlocked(unitID, blocked)
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, unit)
	}
}

func (h *Handlers) apiUnitHistory(w http.ResponseWriter, r *http.Request) {
	unitID, err := parseID(r, "unitID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit ID")
		return
	}
	records, err := h.engine.DB().ListUnitRecords(unitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, records)
}

func (h *Handlers) apiUnitByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	unit, err := h.engine.DB().GetUnitByCode(code)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown unit code")
		return
	}
	writeJSON(w, unit)
}

func (h *Handlers) apiCreateUnits(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order item ID")
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	units, err := h.engine.Tracker().CreateUnits(itemID, req.Quantity)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, units)
}

func (h *Handlers) apiListUnits(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order item ID")
		return
	}
	units, err := h.engine.DB().ListUnitsByOrderItem(itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, units)
}
