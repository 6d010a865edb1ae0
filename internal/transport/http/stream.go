package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/snehjoshi/mdbridge/internal/metrics"
)

// stream is the SSE push transport: a session-scoped loop that drains the
// oldest item on a fixed interval and emits it to the single connected
// consumer.
//
// Session state machine:
//
//	Connecting → Open    emit "connected" so the client can tell an
//	                     established-but-idle stream from a dead one
//	Open (loop)          every poll interval: PopOldest → data event,
//	                     or a ": heartbeat" comment when the queue is empty
//	Open → Closed        session timer fires (stay under platform connection
//	                     caps; the client reconnects) or the peer disconnects
//
// The three wake sources — tick, disconnect, session timeout — race in a
// single select. At most one item leaves the store per tick, and an item
// whose write fails after removal is lost: at-most-once by design.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // tell nginx not to buffer
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	h.metrics.StreamSessions.Inc()
	defer h.metrics.StreamSessions.Dec()

	ticker := time.NewTicker(time.Duration(h.cfg.Stream.PollIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	session := time.NewTimer(time.Duration(h.cfg.Stream.SessionMaxMs) * time.Millisecond)
	defer session.Stop()

	for {
		select {
		case <-r.Context().Done():
			// Peer went away; the ticker and timer are released by the defers.
			return

		case <-session.C:
			// Proactive close. Nothing is lost: items are only removed when
			// actually emitted, so whatever remains queued is picked up by
			// the consumer's next session.
			return

		case <-ticker.C:
			item, ok, err := h.store.PopOldest()
			if err != nil {
				slog.Warn("stream drain failed", "err", err)
				continue
			}
			if !ok {
				// Keep intermediaries from timing out the idle connection.
				io.WriteString(w, ": heartbeat\n\n")
				flusher.Flush()
				continue
			}

			payload, err := json.Marshal(deliver(item))
			if err != nil {
				slog.Error("stream encode failed", "id", item.ID, "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				// Already removed from the store — delivered-and-lost.
				slog.Warn("stream write failed, item lost", "id", item.ID, "err", err)
				return
			}
			flusher.Flush()

			h.metrics.ItemsDelivered.WithLabelValues(metrics.TransportStream).Inc()
			h.observeDepth()
		}
	}
}
