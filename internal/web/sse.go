package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dofliu/InduSpect/internal/analysis"
)

// SSEEmitter implements analysis.ProgressEmitter by writing Server-Sent
// Events. The stream headers are written with the first event, so a
// request that fails before anything was dispatched can still get a plain
// JSON error response.
type SSEEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewSSEEmitter creates an SSEEmitter for the given ResponseWriter.
// Returns nil if the writer does not support flushing.
func NewSSEEmitter(w http.ResponseWriter) *SSEEmitter {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	return &SSEEmitter{w: w, flusher: f}
}

// Started reports whether any event has been written.
func (e *SSEEmitter) Started() bool { return e.started }

// Emit writes a progress event as an SSE data line and flushes.
func (e *SSEEmitter) Emit(ev analysis.ProgressEvent) {
	e.send(ev)
}

func (e *SSEEmitter) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if !e.started {
		e.started = true
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
	}
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	e.flusher.Flush()
}
