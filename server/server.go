// Package server exposes the liveness page and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const statusPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Gomería Bot</title>
  <style>
    body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background-color: #f0f0f0; }
    h1 { color: #0088cc; }
    .status { font-size: 20px; color: green; font-weight: bold; }
  </style>
</head>
<body>
  <h1>🤖 Gomería Bot System</h1>
  <p>Estado del sistema: <span class="status">OPERATIVO 🟢</span></p>
  <p>Este servicio trabaja en segundo plano atendiendo consultas de Telegram.</p>
</body>
</html>
`

const shutdownTimeout = 5 * time.Second

// NewHandler routes / and /healthz, plus /metrics when registry is non-nil.
func NewHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(statusPage))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Server is the HTTP side of the process.
type Server struct {
	http *http.Server
}

// New creates a server listening on addr.
func New(addr string, registry *prometheus.Registry) *Server {
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           NewHandler(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
