package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthProvider supplies the data behind the /health endpoint. The
// strategy supervisor implements this; telemetry only depends on the
// narrow interface to avoid an import cycle.
type HealthProvider interface {
	NodeID() string
	OwnedSymbols() []string
}

type healthResponse struct {
	Status       string   `json:"status"`
	NodeID       string   `json:"node_id"`
	OwnedSymbols []string `json:"owned_symbols"`
}

// Server runs the HTTP surface exposing Prometheus metrics at /metrics
// and node status at /health.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires a net/http.ServeMux with one handler per route and a
// plain http.Server with conservative timeouts.
func NewServer(addr string, metrics *Metrics, health HealthProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := healthResponse{
			Status:       "ok",
			NodeID:       health.NodeID(),
			OwnedSymbols: health.OwnedSymbols(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With("component", "telemetry-server"),
	}
}

// Run starts the server and blocks until it exits or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("telemetry server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("telemetry server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
