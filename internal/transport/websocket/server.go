// Package websocket provides WebSocket-based push delivery for mdbridge.
//
// Clients open a WebSocket connection to:
//
//	GET /ws
//
// The server polls the store on the configured interval and pushes the oldest
// item, one per tick. When the queue is idle a ping control frame keeps the
// connection alive through intermediaries.
//
// Server → client frame:
//
//	{"type":"item","id":"<ULID>","content":"...","markdown":"...","action":"append",...}
//
// Delivery is at-most-once, same as /pending and /stream: the item is removed
// from the store when the frame is written, and a failed write loses it.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/snehjoshi/mdbridge/internal/metrics"
	"github.com/snehjoshi/mdbridge/internal/store"
	"github.com/snehjoshi/mdbridge/internal/types"
)

var upgrader = gorillaws.Upgrader{
	// The bridge serves cross-origin browser clients on purpose (the editor
	// plugin runs in a webview); the bearer token is the actual gate, so the
	// origin check mirrors the permissive CORS policy.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Handler serves the WebSocket push endpoint.
// It is mounted by the HTTP server behind the shared auth middleware.
type Handler struct {
	Store        store.Store
	Metrics      *metrics.Metrics
	PollInterval time.Duration
}

// itemFrame is the JSON structure the server sends to the client. Markdown
// mirrors Content for plugin builds that predate the field rename.
type itemFrame struct {
	Type string `json:"type"` // "item"
	*types.Item
	Markdown string `json:"markdown"`
}

// ServeHTTP upgrades the connection and starts the push loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h.Metrics.StreamSessions.Inc()
	defer h.Metrics.StreamSessions.Dec()

	// Drain inbound frames so control messages are processed; the channel
	// close is our disconnect signal.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-closed:
			return

		case <-ticker.C:
			item, ok, err := h.Store.PopOldest()
			if err != nil {
				slog.Warn("ws drain failed", "err", err)
				continue
			}
			if !ok {
				if err := conn.WriteControl(gorillaws.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
				continue
			}

			data, err := json.Marshal(itemFrame{Type: "item", Item: item, Markdown: item.Content})
			if err != nil {
				slog.Error("ws encode failed", "id", item.ID, "err", err)
				continue
			}
			if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
				// Already removed from the store — delivered-and-lost.
				slog.Warn("ws write failed, item lost", "id", item.ID, "err", err)
				return
			}
			h.Metrics.ItemsDelivered.WithLabelValues(metrics.TransportWebsocket).Inc()
		}
	}
}
