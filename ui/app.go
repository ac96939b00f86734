// Package ui serves stored validation runs over HTTP: a JSON API, HTML reports
// and Prometheus metrics.
package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"cutvalid/internal"
	"cutvalid/internal/metrics"
	"cutvalid/ports"
	"cutvalid/ui/middleware"
)

// App represents the UI application
type App struct {
	router  *chi.Mux
	config  Config
	repo    ports.ResultRepository
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates the application; a nil metrics disables /metrics
func NewApp(config Config, repo ports.ResultRepository, m *metrics.Metrics, logger *internal.Logger) *App {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	app := &App{
		router:  chi.NewRouter(),
		config:  config,
		repo:    repo,
		metrics: m,
		logger:  logger,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(chimw.RequestID)
	a.router.Use(chimw.Logger)
	a.router.Use(chimw.Recoverer)
	if a.metrics != nil {
		a.router.Use(middleware.Observe(a.metrics))
	}
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		a.router.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	a.router.Get("/api/runs", a.handleListRuns)
	a.router.Route("/api/runs/{runID}", func(r chi.Router) {
		r.Use(middleware.LoadRun(a.repo, a.logger))
		r.Get("/", a.handleGetRun)
		r.Get("/files", a.handleListFiles)
		r.Get("/points", a.handleListPoints)
	})

	a.router.With(middleware.LoadRun(a.repo, a.logger)).Get("/runs/{runID}/report", a.handleReport)
}

// Handler returns the routed handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting cutvalid server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
