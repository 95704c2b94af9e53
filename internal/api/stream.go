package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/TimurManjosov/goconfigship/internal/telemetry"
)

// heartbeatInterval keeps intermediaries from closing idle streams.
const heartbeatInterval = 25 * time.Second

// handleStream serves an SSE stream of template changes. Each publish
// or rollback produces a "template" event whose data carries the new
// ETag; clients refetch when it differs from what they hold.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	updates, unsubscribe := s.holder.Subscribe()
	defer unsubscribe()

	send := func(event, etag string) {
		fmt.Fprintf(w, "event: %s\ndata: {\"etag\":%q}\n\n", event, etag)
		flusher.Flush()
	}

	// Clients reconnect after drops; the init event lets them detect
	// updates missed while disconnected.
	send("init", s.holder.Load().ETag)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case etag, ok := <-updates:
			if !ok {
				return
			}
			send("template", etag)
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
