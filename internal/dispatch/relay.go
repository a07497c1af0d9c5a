package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// maxRelayBody caps the upstream body kept for relaying.
const maxRelayBody = 10 << 20

// bodyRecorder keeps the last successful upstream response body so it can be
// relayed to the caller as received, unknown fields included. The typed client
// still decodes the same bytes.
type bodyRecorder struct {
	base http.RoundTripper

	mu   sync.Mutex
	body []byte
}

func newBodyRecorder(base http.RoundTripper) *bodyRecorder {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bodyRecorder{base: base}
}

// RoundTrip implements http.RoundTripper.
func (r *bodyRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody+1))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	if len(data) > maxRelayBody {
		return nil, fmt.Errorf("upstream response exceeds %d bytes", maxRelayBody)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))

	r.mu.Lock()
	r.body = data
	r.mu.Unlock()
	return resp, nil
}

// raw returns the recorded body, or nil when there is none or it is not JSON.
func (r *bodyRecorder) raw() json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := bytes.TrimSpace(r.body)
	if len(data) == 0 || !json.Valid(data) {
		return nil
	}
	return json.RawMessage(data)
}

// relaysUpstreamBody reports whether op answers with the upstream body as is.
// Task deletion answers with a message and stock reads with values and range.
func relaysUpstreamBody(op Operation) bool {
	switch op {
	case OpDeleteTask, OpGetStock:
		return false
	}
	return true
}
