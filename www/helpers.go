package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"paneltrack/tracker"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseID(r *http.Request, param string) (int64, error) {
	s := chi.URLParam(r, param)
	return strconv.ParseInt(s, 10, 64)
}

// writeTrackerError maps the state machine's error taxonomy onto HTTP
// statuses. Every 4xx carries the operator-readable reason; offline
// stations treat any 4xx as a definitive rejection.
func writeTrackerError(w http.ResponseWriter, err error) {
	var (
		notFound   *tracker.NotFoundError
		roleErr    *tracker.RoleMismatchError
		depErr     *tracker.DependencyNotMetError
		preErr     *tracker.PrerequisiteError
		recentErr  *tracker.NotMostRecentError
		blockedErr *tracker.BlockedError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &roleErr):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &depErr), errors.As(err, &preErr),
		errors.As(err, &recentErr), errors.As(err, &blockedErr):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
