package www

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"paneltrack/stage"
	"paneltrack/store"
)

const sessionName = "paneltrack-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "paneltrack-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // stations run on plain HTTP (factory LAN)
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPin(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// sessionWorker returns the logged-in worker's id and role, or ok=false.
func (h *Handlers) sessionWorker(r *http.Request) (int64, string, bool) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return 0, "", false
	}
	id, ok := session.Values["worker_id"].(int64)
	if !ok || id == 0 {
		return 0, "", false
	}
	role, _ := session.Values["role"].(string)
	return id, role, true
}

// requireAdmin guards supervisor endpoints.
func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, role, ok := h.sessionWorker(r)
		if !ok || role != stage.RoleAdmin {
			writeError(w, http.StatusUnauthorized, "admin login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Pin  string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	worker, err := h.engine.DB().GetWorkerByName(req.Name)
	if err != nil || !worker.IsActive || !checkPin(worker.PinHash, req.Pin) {
		writeError(w, http.StatusUnauthorized, "invalid name or pin")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["worker_id"] = worker.ID
	session.Values["role"] = worker.Role
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}
	writeJSON(w, worker)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["worker_id"] = int64(0)
	session.Values["role"] = ""
	session.Save(r, w)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.sessionWorker(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	worker, err := h.engine.DB().GetWorker(id)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, worker)
}

// ensureDefaultAdmin creates the initial supervisor account on a fresh
// database so the factory can bootstrap itself.
func (h *Handlers) ensureDefaultAdmin(db *store.DB) {
	_, err := db.GetWorkerByName("admin")
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return
	}
	hash, err := hashPin("0000")
	if err != nil {
		return
	}
	db.CreateWorker(&store.Worker{Name: "admin", Role: stage.RoleAdmin, PinHash: hash, IsActive: true})
}
