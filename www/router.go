package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paneltrack/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

// NewRouter builds the HTTP surface: the station/dashboard JSON API,
// the SSE stream and the Prometheus endpoint. The returned stop
// function shuts down the SSE hub.
func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}
	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE and metrics
	r.Get("/events", hub.SSEHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/session", h.handleSession)

		// Station operations. Stations sit on the factory LAN and
		// identify the operator by worker id; the state machine
		// enforces role checks.
		r.Get("/tasks", h.apiTasks)
		r.Get("/stages", h.apiStages)
		r.Get("/stage-counts", h.apiStageCounts)
		r.Post("/units/complete", h.apiComplete)
		r.Post("/units/complete-batch", h.apiCompleteBatch)
		r.Post("/records/{recordID}/undo", h.apiUndo)
		r.Get("/units/code/{code}", h.apiUnitByCode)
		r.Get("/units/{unitID}/history", h.apiUnitHistory)
		r.Get("/workers/{workerID}/history", h.apiWorkerHistory)
		r.Get("/workers", h.apiListWorkers)
		r.Get("/order-items", h.apiListOrderItems)
		r.Get("/order-items/{itemID}", h.apiGetOrderItem)
		r.Get("/order-items/{itemID}/units", h.apiListUnits)
		r.Get("/sheets", h.apiListSheets)
		r.Get("/sheets/best-fit", h.apiBestFit)

		// Supervisor operations.
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/units/{unitID}/override", h.apiOverride)
			r.Post("/units/{unitID}/block", h.apiSetBlocked(true))
			r.Post("/units/{unitID}/unblock", h.apiSetBlocked(false))
			r.Post("/order-items", h.apiCreateOrderItem)
			r.Post("/order-items/{itemID}/units", h.apiCreateUnits)
			r.Post("/workers", h.apiCreateWorker)
			r.Put("/workers/{workerID}", h.apiUpdateWorker)
			r.Post("/workers/{workerID}/pin", h.apiSetWorkerPin)
			r.Post("/sheets", h.apiCreateSheet)
			r.Put("/sheets/{sheetID}", h.apiUpdateSheet)
			r.Delete("/sheets/{sheetID}", h.apiDeleteSheet)
		})
	})

	stopFn := func() {
		hub.Stop()
	}
	return r, stopFn
}
