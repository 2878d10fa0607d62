package eventstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event names produced by the analysis backend
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// WriteMessage writes msg as one block and flushes w when it can.
// Multi-line data is split across several data lines.
func WriteMessage(w io.Writer, msg Message) error {
	var b strings.Builder
	if msg.Event != "" && msg.Event != DefaultEvent {
		fmt.Fprintf(&b, "event: %s\n", msg.Event)
	}
	for _, line := range strings.Split(msg.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// WriteEvent JSON-encodes payload and writes it under the given event name
func WriteEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return WriteMessage(w, Message{Event: event, Data: string(data)})
}

// SetHeaders prepares an HTTP response for streaming events
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
