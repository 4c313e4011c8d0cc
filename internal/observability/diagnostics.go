package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// DiagnosticsServer exposes health, readiness, and Prometheus metrics
// endpoints over HTTP while a long analysis is running.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// ErrNilMetricsHandler is returned when the diagnostics server is started
// without a Prometheus scrape handler.
var ErrNilMetricsHandler = errors.New("diagnostics server requires a metrics handler")

// NewDiagnosticsServer starts an HTTP server at addr with /healthz, /readyz,
// and /metrics endpoints. The metricsHandler comes from [Providers] built
// with Config.EnablePrometheus, so the scrape serves the same MeterProvider
// the application records on.
func NewDiagnosticsServer(
	addr string, metricsHandler http.Handler, checks ...ReadyCheck,
) (*DiagnosticsServer, error) {
	if metricsHandler == nil {
		return nil, ErrNilMetricsHandler
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))
	mux.Handle("/metrics", metricsHandler)

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the diagnostics server.
func (d *DiagnosticsServer) Close() error {
	err := d.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
