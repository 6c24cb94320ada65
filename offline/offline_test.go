package offline

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := OpenQueue(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func enqueueComplete(t *testing.T, q *Queue, unitID int64) *Action {
	t.Helper()
	a, err := q.Enqueue(ActionComplete, CompletePayload{
		UnitID: unitID, WorkerID: 1, Stage: "pvc_cut", Latitude: 12.9, Longitude: 77.6,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return a
}

func TestQueueOrderAndRemove(t *testing.T) {
	q := testQueue(t)

	a1 := enqueueComplete(t, q, 10)
	a2 := enqueueComplete(t, q, 11)
	a3 := enqueueComplete(t, q, 12)
	if a1.ID == a2.ID {
		t.Error("action ids should be unique")
	}

	actions, err := q.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("len = %d, want 3", len(actions))
	}
	for i, want := range []int64{a1.Seq, a2.Seq, a3.Seq} {
		if actions[i].Seq != want {
			t.Errorf("action %d seq = %d, want %d", i, actions[i].Seq, want)
		}
	}

	var p CompletePayload
	if err := json.Unmarshal(actions[0].Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.UnitID != 10 || p.Stage != "pvc_cut" {
		t.Errorf("payload = %+v", p)
	}

	if err := q.Remove(a2.Seq); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, _ := q.Len()
	if n != 2 {
		t.Errorf("len after remove = %d, want 2", n)
	}
	actions, _ = q.List()
	if actions[0].Seq != a1.Seq || actions[1].Seq != a3.Seq {
		t.Error("remove should preserve relative order")
	}
}

func TestQueueRejectsUnknownType(t *testing.T) {
	q := testQueue(t)
	if _, err := q.Enqueue("reboot", nil); err == nil {
		t.Error("unknown action type should be rejected")
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")

	q, err := OpenQueue(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	enqueueComplete(t, q, 5)
	q.Close()

	q2, err := OpenQueue(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer q2.Close()
	n, _ := q2.Len()
	if n != 1 {
		t.Errorf("len after reopen = %d, want 1", n)
	}
}

// fakeSubmitter scripts one response per unit id.
type fakeSubmitter struct {
	responses map[int64]error
	submitted []int64
}

func (f *fakeSubmitter) Submit(a Action) error {
	var p CompletePayload
	json.Unmarshal(a.Payload, &p)
	f.submitted = append(f.submitted, p.UnitID)
	return f.responses[p.UnitID]
}

func TestDrainDiscardsRejectedAction(t *testing.T) {
	q := testQueue(t)
	enqueueComplete(t, q, 1)
	enqueueComplete(t, q, 2)
	enqueueComplete(t, q, 3)

	// The middle action hits a dependency violation on the server.
	sub := &fakeSubmitter{responses: map[int64]error{
		2: &Rejection{Status: http.StatusConflict, Reason: "emboss requires foil_pasting"},
	}}
	r := NewReplayer(q, sub, time.Minute)
	r.Drain()

	n, _ := q.Len()
	if n != 0 {
		t.Errorf("queue len after drain = %d, want 0", n)
	}
	if len(sub.submitted) != 3 {
		t.Errorf("submitted = %v, want all three", sub.submitted)
	}

	// Nothing left to replay: the applied actions went exactly once.
	sub.submitted = nil
	r.Drain()
	if len(sub.submitted) != 0 {
		t.Errorf("second drain submitted %v, want nothing", sub.submitted)
	}
}

func TestDrainStopsOnTransportError(t *testing.T) {
	q := testQueue(t)
	enqueueComplete(t, q, 1)
	enqueueComplete(t, q, 2)
	enqueueComplete(t, q, 3)

	sub := &fakeSubmitter{responses: map[int64]error{
		2: errors.New("dial tcp: connection refused"),
	}}
	r := NewReplayer(q, sub, time.Minute)
	r.Drain()

	// Action 1 applied; 2 and 3 stay queued in order.
	n, _ := q.Len()
	if n != 2 {
		t.Fatalf("queue len = %d, want 2", n)
	}
	actions, _ := q.List()
	var p CompletePayload
	json.Unmarshal(actions[0].Payload, &p)
	if p.UnitID != 2 {
		t.Errorf("head of queue = unit %d, want 2", p.UnitID)
	}
	if len(sub.submitted) != 2 {
		t.Errorf("submitted = %v, want [1 2]", sub.submitted)
	}
}

func TestHTTPSubmitterDistinguishesFailures(t *testing.T) {
	var gotPath, gotActionID string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotActionID = r.Header.Get("X-Action-ID")
		w.WriteHeader(status)
		if status >= 400 {
			json.NewEncoder(w).Encode(map[string]string{"error": "cannot complete emboss: foil_pasting not done"})
		}
	}))
	defer srv.Close()

	sub := NewHTTPSubmitter(srv.URL, time.Second)
	a := Action{ID: "abc-123", Type: ActionComplete, Payload: []byte(`{"unit_id":1}`)}

	if err := sub.Submit(a); err != nil {
		t.Fatalf("2xx should succeed: %v", err)
	}
	if gotPath != "/api/units/complete" {
		t.Errorf("path = %q", gotPath)
	}
	if gotActionID != "abc-123" {
		t.Errorf("action id header = %q", gotActionID)
	}

	status = http.StatusConflict
	err := sub.Submit(a)
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("4xx err = %v, want Rejection", err)
	}
	if rej.Status != http.StatusConflict || rej.Reason == "" {
		t.Errorf("rejection = %+v", rej)
	}

	status = http.StatusInternalServerError
	err = sub.Submit(a)
	if err == nil || errors.As(err, &rej) {
		t.Errorf("5xx err = %v, want retryable error", err)
	}

	// A dead server is a transport error, not a rejection.
	srv.Close()
	err = sub.Submit(a)
	if err == nil || errors.As(err, &rej) {
		t.Errorf("dead server err = %v, want transport error", err)
	}
}
