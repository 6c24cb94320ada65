package offline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPSubmitter replays actions against the factory server's API.
type HTTPSubmitter struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSubmitter(baseURL string, timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSubmitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit posts one action. Transport failures return a plain error so
// the action stays queued; 4xx responses return a *Rejection because
// the server has definitively refused the action.
func (s *HTTPSubmitter) Submit(a Action) error {
	var path string
	switch a.Type {
	case ActionComplete:
		path = "/api/units/complete"
	case ActionBatch:
		path = "/api/units/complete-batch"
	default:
		return &Rejection{Status: 0, Reason: fmt.Sprintf("unknown action type %q", a.Type)}
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewReader(a.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Action-ID", a.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit %s: %w", a.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &Rejection{Status: resp.StatusCode, Reason: readError(resp.Body)}
	}
	return fmt.Errorf("submit %s: server returned %d", a.Type, resp.StatusCode)
}

func readError(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}
