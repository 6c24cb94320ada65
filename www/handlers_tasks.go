package www

import (
	"net/http"

	"paneltrack/stage"
)

func (h *Handlers) apiTasks(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		if _, sessionRole, ok := h.sessionWorker(r); ok {
			role = sessionRole
		}
	}
	if role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	groups, err := h.engine.Tasks().StationTasks(role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, groups)
}

// apiStageCounts serves the factory-floor dashboard counters. The
// Redis cache answers when configured; otherwise the store does.
func (h *Handlers) apiStageCounts(w http.ResponseWriter, r *http.Request) {
	if c := h.engine.Counts(); c != nil {
		counts, err := c.Counts(r.Context())
		if err == nil {
			writeJSON(w, counts)
			return
		}
	}
	counts, err := h.engine.DB().StageCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, counts)
}

func (h *Handlers) apiStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, stage.Pipeline())
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DB().Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, map[string]any{
		"status":      "ok",
		"factory":     h.engine.AppConfig().Factory,
		"sse_clients": h.eventHub.ClientCount(),
	})
}
