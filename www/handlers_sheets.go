package www

import (
	"encoding/json"
	"net/http"
	"strconv"

	"paneltrack/blank"
	"paneltrack/store"
)

func (h *Handlers) apiListSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.engine.DB().ListSheets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sheets)
}

func (h *Handlers) apiCreateSheet(w http.ResponseWriter, r *http.Request) {
	var s store.SheetSize
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.Width <= 0 || s.Height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	if err := h.engine.DB().CreateSheet(&s); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, s)
}

func (h *Handlers) apiUpdateSheet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sheet ID")
		return
	}
	var s store.SheetSize
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.ID = id
	if err := h.engine.DB().UpdateSheet(&s); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, s)
}

func (h *Handlers) apiDeleteSheet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sheet ID")
		return
	}
	if err := h.engine.DB().DeleteSheet(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// apiBestFit answers ad-hoc sheet lookups for the cutting station:
// given encoded width/height and a design type, pick from the active
// pool.
func (h *Handlers) apiBestFit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, errW := strconv.ParseFloat(q.Get("width"), 64)
	height, errH := strconv.ParseFloat(q.Get("height"), 64)
	if errW != nil || errH != nil {
		writeError(w, http.StatusBadRequest, "width and height are required numbers")
		return
	}
	design := q.Get("design")

	sheets, err := h.engine.DB().ListActiveSheets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pool := make([]blank.Sheet, 0, len(sheets))
	for _, s := range sheets {
		pool = append(pool, blank.Sheet{ID: s.ID, Width: s.Width, Height: s.Height})
	}

	reqW, reqH := blank.Required(width, height, design)
	sheet, ok := blank.BestFit(reqW, reqH, pool)
	if !ok {
		writeJSON(w, map[string]any{
			"required_width":  reqW,
			"required_height": reqH,
			"match":           false,
		})
		return
	}
	writeJSON(w, map[string]any{
		"required_width":  reqW,
		"required_height": reqH,
		"match":           true,
		"sheet":           sheet,
	})
}
