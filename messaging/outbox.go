package messaging

import (
	"log"
	"sync"
	"time"

	"paneltrack/config"
	"paneltrack/metrics"
	"paneltrack/store"
)

const drainBatch = 50

// Publisher is the broker surface the drainer needs.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, payload []byte) error
}

// OutboxDrainer ships queued dashboard reports to the plant broker.
// Reports stay in the outbox across restarts and broker outages; the
// drainer retries them in id order until each one is acked.
type OutboxDrainer struct {
	db       *store.DB
	pub      Publisher
	cfg      *config.MessagingConfig
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewOutboxDrainer(db *store.DB, pub Publisher, cfg *config.MessagingConfig) *OutboxDrainer {
	return &OutboxDrainer{
		db:       db,
		pub:      pub,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start launches the drain loop. The first drain runs immediately so
// reports queued while the server was down go out on reconnect.
func (d *OutboxDrainer) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		interval := d.cfg.OutboxDrainInterval
		if interval <= 0 {
			interval = 5 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		d.Drain()
		for {
			select {
			case <-d.stopChan:
				return
			case <-ticker.C:
				d.Drain()
			}
		}
	}()
}

// Stop halts the drain loop and waits for an in-flight drain.
func (d *OutboxDrainer) Stop() {
	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}
	d.wg.Wait()
}

// Drain publishes one batch of pending reports and returns how many
// were acked. Reports the broker refuses keep their retry count
// climbing so stuck ones are visible in the logs.
func (d *OutboxDrainer) Drain() int {
	if !d.pub.IsConnected() {
		return 0
	}

	msgs, err := d.db.ListPendingOutbox(drainBatch)
	if err != nil {
		log.Printf("list pending outbox: %v", err)
		return 0
	}
	metrics.OutboxPending.Set(float64(len(msgs)))
	if len(msgs) == 0 {
		return 0
	}

	sent := make(map[string]int)
	for _, msg := range msgs {
		topic := msg.Topic
		if topic == "" {
			topic = d.cfg.ReportTopic
		}
		if err := d.pub.Publish(topic, msg.Payload); err != nil {
			log.Printf("publish %s report %d (retry %d): %v", msg.MsgType, msg.ID, msg.Retries, err)
			d.db.IncrementOutboxRetries(msg.ID)
			continue
		}
		if err := d.db.AckOutbox(msg.ID); err != nil {
			log.Printf("ack outbox msg %d: %v", msg.ID, err)
			continue
		}
		sent[msg.MsgType]++
	}

	total := 0
	for msgType, n := range sent {
		log.Printf("outbox: sent %d %s report(s)", n, msgType)
		total += n
	}
	metrics.OutboxPending.Set(float64(len(msgs) - total))
	return total
}
