package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paneltrack/config"
	"paneltrack/engine"
	"paneltrack/livecount"
	"paneltrack/messaging"
	"paneltrack/store"
	"paneltrack/www"
)

func main() {
	configPath := flag.String("config", "paneltrack.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *port > 0 {
		cfg.Web.Port = *port
	}

	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Live stage-count cache, optional.
	counts, err := livecount.Open(&cfg.Redis, db, cfg.Factory)
	if err != nil {
		log.Printf("live counts disabled: %v", err)
	}
	if counts != nil {
		defer counts.Close()
	}

	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Counts:     counts,
		LogFunc:    log.Printf,
	})
	eng.Start()
	defer eng.Stop()

	// Dashboard report publishing via the outbox.
	if cfg.Messaging.MQTT.ClientID == "" {
		cfg.Messaging.MQTT.ClientID = cfg.NodeID()
	}
	if cfg.Messaging.Kafka.GroupID == "" {
		cfg.Messaging.Kafka.GroupID = cfg.NodeID()
	}
	msgClient := messaging.NewClient(&cfg.Messaging)
	defer msgClient.Close()
	if err := msgClient.Connect(); err != nil {
		log.Printf("messaging connect: %v (reports queue in outbox)", err)
	}
	drainer := messaging.NewOutboxDrainer(db, msgClient, &cfg.Messaging)
	drainer.Start()
	defer drainer.Stop()

	// Inbound order releases spawn tracking units.
	if msgClient.IsConnected() && cfg.Messaging.OrdersTopic != "" {
		sub := messaging.NewSubscriber(msgClient, cfg, db, eng.Tracker())
		if err := sub.Start(); err != nil {
			log.Printf("orders subscribe: %v", err)
		}
	}

	router, stopWeb := www.NewRouter(eng)
	defer stopWeb()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("paneltrack listening on %s (factory=%s)", addr, cfg.Factory)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	// Stop SSE event hub first so long-lived connections close.
	stopWeb()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
