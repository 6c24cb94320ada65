package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"paneltrack/config"
	"paneltrack/offline"
)

// stationd runs beside a station tablet. It forwards completions to
// the factory server when the network is up and queues them locally
// when it is not; a background replayer drains the queue in order.
type station struct {
	queue     *offline.Queue
	submitter *offline.HTTPSubmitter
	replayer  *offline.Replayer
}

func main() {
	configPath := flag.String("config", "paneltrack.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	queue, err := offline.OpenQueue(cfg.Station.QueuePath)
	if err != nil {
		log.Fatalf("open offline queue: %v", err)
	}
	defer queue.Close()

	submitter := offline.NewHTTPSubmitter(cfg.Station.ServerURL, cfg.Station.SubmitTimeout)
	replayer := offline.NewReplayer(queue, submitter, cfg.Station.ReplayInterval)
	replayer.Start()
	defer replayer.Stop()

	// Drain whatever survived the last shutdown.
	replayer.Drain()

	s := &station{queue: queue, submitter: submitter, replayer: replayer}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/complete", s.handleComplete)
	r.Post("/complete-batch", s.handleBatch)
	r.Get("/queue", s.handleQueue)
	r.Post("/queue/replay", s.handleReplay)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.Station.ListenHost, cfg.Station.ListenPort)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("stationd listening on %s (server=%s)", addr, cfg.Station.ServerURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// submitOrQueue tries the server first. Transport failures queue the
// action for replay; definitive rejections are returned to the
// operator immediately.
func (s *station) submitOrQueue(w http.ResponseWriter, actionType string, payload any) {
	a, err := s.queue.Enqueue(actionType, payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = s.submitter.Submit(*a)
	var rej *offline.Rejection
	switch {
	case err == nil:
		s.queue.Remove(a.Seq)
		writeJSON(w, map[string]any{"status": "applied", "action_id": a.ID})
	case errors.As(err, &rej):
		s.queue.Remove(a.Seq)
		writeError(w, rej.Status, rej.Reason)
	default:
		log.Printf("server unreachable, queued action %s: %v", a.ID, err)
		writeJSON(w, map[string]any{"status": "queued", "action_id": a.ID})
	}
}

func (s *station) handleComplete(w http.ResponseWriter, r *http.Request) {
	var p offline.CompletePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.submitOrQueue(w, offline.ActionComplete, p)
}

func (s *station) handleBatch(w http.ResponseWriter, r *http.Request) {
	var p offline.BatchPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(p.UnitIDs) == 0 {
		writeError(w, http.StatusBadRequest, "unit_ids is empty")
		return
	}
	s.submitOrQueue(w, offline.ActionBatch, p)
}

func (s *station) handleQueue(w http.ResponseWriter, r *http.Request) {
	actions, err := s.queue.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"pending": len(actions), "actions": actions})
}

func (s *station) handleReplay(w http.ResponseWriter, r *http.Request) {
	s.replayer.Drain()
	n, err := s.queue.Len()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"pending": n})
}

func (s *station) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, _ := s.queue.Len()
	writeJSON(w, map[string]any{"status": "ok", "pending": n})
}
