package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// DoneFrame terminates an event stream.
const DoneFrame = "[DONE]"

// SSEEmitter writes events as server-sent events frames.
type SSEEmitter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

var _ core.Emitter = (*SSEEmitter)(nil)

// NewSSEEmitter prepares w for an event stream and returns an emitter
// writing to it. Response headers are sent immediately.
func NewSSEEmitter(w http.ResponseWriter) *SSEEmitter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	e := &SSEEmitter{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
		f.Flush()
	}
	return e
}

// Emit implements core.Emitter.
func (e *SSEEmitter) Emit(ev core.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return e.frame(payload)
}

// Comment writes an SSE comment line, ignored by event consumers.
func (e *SSEEmitter) Comment(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("write comment: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// Done writes the terminating frame.
func (e *SSEEmitter) Done() error { return e.frame([]byte(DoneFrame)) }

func (e *SSEEmitter) frame(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
