// Package http provides the HTTP transport layer for mdbridge.
//
// Routes (Go 1.22+ method-qualified patterns):
//
//	GET  /health    liveness probe (no auth)
//	POST /queue     producer submission
//	GET  /pending   long-poll pickup (204 when empty)
//	GET  /stream    SSE push session
//	GET  /peek      non-destructive queue snapshot
//	GET  /ws        WebSocket push session
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/snehjoshi/mdbridge/internal/config"
	"github.com/snehjoshi/mdbridge/internal/metrics"
	"github.com/snehjoshi/mdbridge/internal/store"
	transportws "github.com/snehjoshi/mdbridge/internal/transport/websocket"
)

// Server wraps the stdlib HTTP server with mdbridge route wiring.
type Server struct {
	inner *http.Server
}

// New builds a Server around the shared item store.
// The caller is responsible for calling ListenAndServe / Shutdown.
func New(st store.Store, cfg *config.Config, m *metrics.Metrics) *Server {
	h := &Handler{store: st, cfg: cfg, metrics: m}
	ws := &transportws.Handler{
		Store:        st,
		Metrics:      m,
		PollInterval: time.Duration(cfg.Stream.PollIntervalMs) * time.Millisecond,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /queue", h.enqueue)
	mux.HandleFunc("GET /pending", h.pending)
	mux.HandleFunc("GET /stream", h.stream)
	mux.HandleFunc("GET /peek", h.peek)
	mux.Handle("GET /ws", ws)

	// Generous headroom over the content cap for JSON framing and metadata.
	maxBody := int64(cfg.Queue.MaxContentKB)*1024 + 64*1024

	var handler http.Handler = mux
	handler = chain(handler,
		CORSMiddleware,
		MaxBodyMiddleware(maxBody),
		LoggingMiddleware,
		MetricsMiddleware(m),
		AuthMiddleware(cfg.Auth.Token),
		RateLimitMiddleware(cfg.Limits.RateRPS, cfg.Limits.RateBurst),
	)

	// WriteTimeout must outlast a full stream session plus slack.
	writeTimeout := time.Duration(cfg.Stream.SessionMaxMs)*time.Millisecond + 10*time.Second

	return &Server{
		inner: &http.Server{
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Handler returns the composed http.Handler (useful for testing).
func (s *Server) Handler() http.Handler { return s.inner.Handler }

// ListenAndServe starts the server on the given address (e.g. ":3000").
// It returns when the server stops or encounters an error.
func (s *Server) ListenAndServe(addr string) error {
	s.inner.Addr = addr
	return s.inner.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
