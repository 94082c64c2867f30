package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/astro-gateway/internal/events"
)

// writeEvent frames one event in text/event-stream format and flushes it.
func writeEvent(w *bufio.Writer, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
