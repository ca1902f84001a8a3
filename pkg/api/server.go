// Package api serves indexed master file records over HTTP.
//
// Every route under /api/v1 requires the X-API-Key header. /metrics is left
// open for scraping.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/esmkit/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP routes. /metrics serves whatever gatherer
// collects, normally the registry the server's Metrics were created with.
func NewRouter(server *Server, gatherer prometheus.Gatherer) http.Handler {
	metrics := server.metrics
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Lookups
		r.Get("/records/{formid}", metrics.InstrumentHandler("GET", "/api/v1/records/{formid}", server.handleGetRecord))
		r.Get("/edid/{name}", metrics.InstrumentHandler("GET", "/api/v1/edid/{name}", server.handleGetEditorID))
		r.Get("/tags/{tag}", metrics.InstrumentHandler("GET", "/api/v1/tags/{tag}", server.handleListTag))

		// Uploads
		r.Get("/runs", metrics.InstrumentHandler("GET", "/api/v1/runs", server.handleListRuns))
		r.Post("/files", metrics.InstrumentHandler("POST", "/api/v1/files", server.handleUploadFile))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully
func StartServer(ctx context.Context, store IIndexStore, config ServerConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	server := NewServer(store, config, NewMetrics(registry), logger)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "listen on %s", addr)
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
