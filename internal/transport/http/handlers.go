package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snehjoshi/mdbridge/internal/config"
	"github.com/snehjoshi/mdbridge/internal/metrics"
	"github.com/snehjoshi/mdbridge/internal/store"
	"github.com/snehjoshi/mdbridge/internal/types"
)

// Handler groups all HTTP request handlers around the shared item store.
type Handler struct {
	store   store.Store
	cfg     *config.Config
	metrics *metrics.Metrics
}

// ─── DTOs ─────────────────────────────────────────────────────────────────────

type enqueueReq struct {
	Content    string       `json:"content"`
	Action     types.Action `json:"action"`
	Collection string       `json:"collection"`
	Title      string       `json:"title"`
}

type enqueueResp struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// deliveredItem is the wire shape of an item handed to a consumer. The
// legacy "markdown" field mirrors Content so plugin builds that predate the
// field rename keep working; new readers use "content".
type deliveredItem struct {
	*types.Item
	Markdown string `json:"markdown"`
}

func deliver(it *types.Item) deliveredItem {
	return deliveredItem{Item: it, Markdown: it.Content}
}

type peekResp struct {
	Count int             `json:"count"`
	Items []deliveredItem `json:"items"`
}

type healthResp struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// ─── Health ───────────────────────────────────────────────────────────────────

var startTime = time.Now()

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{
		Status:  "ok",
		Backend: string(h.cfg.Storage.Backend),
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Version: "1.0.0",
	})
}

// ─── Enqueue (producer) ───────────────────────────────────────────────────────

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueReq
	if !decodeJSON(w, r, &req) {
		h.metrics.ItemsRejected.Inc()
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		h.metrics.ItemsRejected.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}
	if len(req.Content) > h.cfg.Queue.MaxContentKB*1024 {
		h.metrics.ItemsRejected.Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "content too large"})
		return
	}

	id, err := store.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	item := &types.Item{
		ID:         id,
		Content:    req.Content,
		Action:     types.NormalizeAction(req.Action),
		Collection: req.Collection,
		Title:      req.Title,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.store.Insert(item); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.metrics.ItemsEnqueued.Inc()
	h.observeDepth()
	writeJSON(w, http.StatusOK, enqueueResp{Success: true, ID: id})
}

// ─── Pending (long-poll consumer) ─────────────────────────────────────────────

// pending removes and returns the oldest item. Removal and delivery are the
// same event: once the item is written to the response it is gone from the
// store, even if the response never reaches the consumer (at-most-once).
func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	item, ok, err := h.store.PopOldest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.metrics.ItemsDelivered.WithLabelValues(metrics.TransportPoll).Inc()
	h.observeDepth()
	writeJSON(w, http.StatusOK, deliver(item))
}

// ─── Peek (diagnostics) ───────────────────────────────────────────────────────

func (h *Handler) peek(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	count := len(items)
	if limit := h.cfg.Queue.PeekLimit; count > limit {
		items = items[:limit]
	}

	out := make([]deliveredItem, 0, len(items))
	for _, it := range items {
		out = append(out, deliver(it))
	}
	writeJSON(w, http.StatusOK, peekResp{Count: count, Items: out})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// observeDepth refreshes the queue depth gauge. Best-effort: a failed Len
// must never fail the request that triggered it.
func (h *Handler) observeDepth() {
	n, err := h.store.Len()
	if err != nil {
		slog.Warn("queue depth probe failed", "err", err)
		return
	}
	h.metrics.QueueDepth.Set(float64(n))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}
