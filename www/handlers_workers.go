package www

import (
	"encoding/json"
	"net/http"
	"time"

	"paneltrack/stage"
	"paneltrack/store"
)

func (h *Handlers) apiListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.engine.DB().ListWorkers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, workers)
}

func (h *Handlers) apiCreateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
		Pin  string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Pin == "" {
		writeError(w, http.StatusBadRequest, "name and pin are required")
		return
	}
	if _, ok := stage.ForRole(req.Role); !ok && req.Role != stage.RoleAdmin {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := hashPin(req.Pin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	worker := &store.Worker{Name: req.Name, Role: req.Role, PinHash: hash, IsActive: true}
	if err := h.engine.DB().CreateWorker(worker); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, worker)
}

func (h *Handlers) apiUpdateWorker(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "workerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid worker ID")
		return
	}
	worker, err := h.engine.DB().GetWorker(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown worker")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil {
		worker.Name = *req.Name
	}
	if req.Role != nil {
		if _, ok := stage.ForRole(*req.Role); !ok && *req.Role != stage.RoleAdmin {
			writeError(w, http.StatusBadRequest, "unknown role")
			return
		}
		worker.Role = *req.Role
	}
	if req.IsActive != nil {
		worker.IsActive = *req.IsActive
	}

	if err := h.engine.DB().UpdateWorker(worker); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, worker)
}

func (h *Handlers) apiSetWorkerPin(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "workerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid worker ID")
		return
	}
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pin == "" {
		writeError(w, http.StatusBadRequest, "pin is required")
		return
	}
	hash, err := hashPin(req.Pin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.engine.DB().SetWorkerPin(id, hash); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// apiWorkerHistory returns a worker's records for one calendar day,
// newest first. Defaults to today.
func (h *Handlers) apiWorkerHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "workerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid worker ID")
		return
	}

	day := time.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		day, err = time.ParseInLocation("2006-01-02", d, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)

	records, err := h.engine.DB().ListWorkerRecords(id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, records)
}
