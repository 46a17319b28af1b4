// Package api serves the catbuf codec and record store over HTTP.
//
// All routes live under /api/v1 and require the X-API-Key header when a key
// is configured. /metrics is left open for scraping.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ssargent/catbuf/pkg/logging"
)

const defaultShutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP handler for server. Metrics are exposed from reg.
func NewRouter(server *Server, reg *prometheus.Registry) http.Handler {
	metrics := server.metrics

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))
		r.Get("/system/info", metrics.InstrumentHandler("GET", "/api/v1/system/info", server.handleSystemInfo))

		// Schemas and the codec
		r.Get("/schemas", metrics.InstrumentHandler("GET", "/api/v1/schemas", server.handleListSchemas))
		r.Get("/schemas/{name}", metrics.InstrumentHandler("GET", "/api/v1/schemas/{name}", server.handleDescribeSchema))
		r.Post("/schemas/{name}/encode", metrics.InstrumentHandler("POST", "/api/v1/schemas/{name}/encode", server.handleEncode))
		r.Post("/schemas/{name}/decode", metrics.InstrumentHandler("POST", "/api/v1/schemas/{name}/decode", server.handleDecode))

		// Stored records
		r.Post("/records/{schema}", metrics.InstrumentHandler("POST", "/api/v1/records/{schema}", server.handleCreateRecord))
		r.Get("/records/{id}", metrics.InstrumentHandler("GET", "/api/v1/records/{id}", server.handleGetRecord))
		r.Delete("/records/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/records/{id}", server.handleDeleteRecord))
		r.Get("/records", metrics.InstrumentHandler("GET", "/api/v1/records", server.handleListRecords))
	})

	return r
}

// Serve listens on config.Addr and serves handler until ctx is cancelled,
// then shuts down gracefully.
func Serve(ctx context.Context, config ServerConfig, handler http.Handler) error {
	ln, err := net.Listen("tcp", config.Addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, config, ln, handler)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, config ServerConfig, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.L().Info("catbuf API listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logging.L().Info("catbuf API shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
