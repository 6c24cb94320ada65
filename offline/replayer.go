package offline

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Rejection is a definitive server-side refusal of an action. Replaying
// a rejected action can never succeed, so the replayer discards it
// instead of retrying forever.
type Rejection struct {
	Status int
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("server rejected action (%d): %s", r.Status, r.Reason)
}

// Submitter delivers one action to the server. A nil return means
// applied; a *Rejection means refused and not worth retrying; any
// other error means the server was unreachable and the action stays
// queued.
type Submitter interface {
	Submit(a Action) error
}

// Replayer drains the queue in the background, strictly in enqueue
// order, one request at a time.
type Replayer struct {
	queue     *Queue
	submitter Submitter
	interval  time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewReplayer(queue *Queue, submitter Submitter, interval time.Duration) *Replayer {
	return &Replayer{
		queue:     queue,
		submitter: submitter,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the replay loop.
func (r *Replayer) Start() {
	r.wg.Add(1)
	go r.replayLoop()
}

// Stop stops the replay loop.
func (r *Replayer) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.wg.Wait()
}

func (r *Replayer) replayLoop() {
	defer r.wg.Done()

	interval := r.interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.Drain()
		}
	}
}

// Drain attempts one pass over the queue. A transport failure ends the
// pass with the remaining actions still queued; a rejection discards
// only the rejected action and the pass continues.
func (r *Replayer) Drain() {
	actions, err := r.queue.List()
	if err != nil {
		log.Printf("list offline actions: %v", err)
		return
	}

	for _, a := range actions {
		err := r.submitter.Submit(a)
		switch e := err.(type) {
		case nil:
			if err := r.queue.Remove(a.Seq); err != nil {
				log.Printf("remove action %s: %v", a.ID, err)
				return
			}
		case *Rejection:
			log.Printf("action %s rejected, dropping: %s", a.ID, e.Reason)
			if err := r.queue.Remove(a.Seq); err != nil {
				log.Printf("remove action %s: %v", a.ID, err)
				return
			}
		default:
			log.Printf("submit action %s: %v", a.ID, err)
			return
		}
	}
}
