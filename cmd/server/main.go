// Command mdbridge-server is the bridge queue server process.
// It accepts content from producers (the tm CLI, scripts, anything that can
// POST JSON) and hands it to the downstream editor client over long-poll,
// SSE, or WebSocket.
//
// Usage:
//
//	mdbridge-server [--config path/to/config.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/snehjoshi/mdbridge/internal/config"
	"github.com/snehjoshi/mdbridge/internal/metrics"
	"github.com/snehjoshi/mdbridge/internal/store"
	transphttp "github.com/snehjoshi/mdbridge/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mdbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ── 2. Set up structured logger ──────────────────────────────────────────
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if cfg.Auth.Token == "" {
		slog.Warn("auth token is empty — every endpoint is open, do not expose this server beyond localhost")
	}

	// ── 3. Open the item store ───────────────────────────────────────────────
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	slog.Info("mdbridge starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Storage.Backend,
		"poll_interval_ms", cfg.Stream.PollIntervalMs,
		"session_max_ms", cfg.Stream.SessionMaxMs,
	)

	// ── 4. Initialise metrics ────────────────────────────────────────────────
	m := metrics.New()

	// ── 5. Start HTTP transport ──────────────────────────────────────────────
	srv := transphttp.New(st, cfg, m)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Serve in a background goroutine so we can handle signals.
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("mdbridge ready", "addr", addr)
		if err := srv.ListenAndServe(addr); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		} else {
			serveErr <- nil
		}
	}()

	// ── 6. Start dedicated Prometheus metrics listener ───────────────────────
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			slog.Info("metrics server listening", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, m.Handler()); err != nil {
				slog.Warn("metrics server error", "err", err)
			}
		}()
	}

	// ── 7. Graceful shutdown on SIGINT / SIGTERM ─────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		if err != nil {
			_ = st.Close()
			return fmt.Errorf("http server: %w", err)
		}
		return st.Close()
	}

	// Give in-flight requests (including open stream sessions) a moment.
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	if err := st.Close(); err != nil {
		slog.Warn("store close error", "err", err)
	}

	slog.Info("mdbridge stopped")
	return nil
}

// openStore builds the Store implementation selected by the config.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return store.OpenBolt(filepath.Join(cfg.Storage.DataDir, "queue.db"))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Storage.Backend)
	}
}
