package progress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSEEmitter implements Emitter by writing Server-Sent Events.
type SSEEmitter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEEmitter creates an SSEEmitter for the given ResponseWriter and
// writes the event-stream headers. Returns nil if the writer does not
// support flushing.
func NewSSEEmitter(w http.ResponseWriter) *SSEEmitter {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &SSEEmitter{w: w, flusher: f}
}

// Emit writes an event as an SSE data line and flushes.
func (e *SSEEmitter) Emit(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	e.flusher.Flush()
}
