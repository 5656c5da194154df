// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lorekeep/internal/api"
	"github.com/starford/lorekeep/internal/entryservice"
	"github.com/starford/lorekeep/internal/mcpserver"
	"github.com/starford/lorekeep/internal/metrics"
	"github.com/starford/lorekeep/internal/sse"
	"github.com/starford/lorekeep/internal/store"
	"github.com/starford/lorekeep/internal/vault"
)

// components is everything one process opens from a Config.
type components struct {
	db      *store.DB
	mirror  *vault.Mirror
	metrics *metrics.Registry
	svc     *entryservice.Service
}

func (c *components) Close() error {
	return c.db.Close()
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// open wires store, mirror, metrics and the entry service. events may be nil.
func open(ctx context.Context, cfg *Config, logger *slog.Logger, events entryservice.EventSink) (*components, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	c := &components{db: db, metrics: metrics.NewRegistry()}

	opts := []entryservice.Option{
		entryservice.WithLogger(logger),
		entryservice.WithMetrics(c.metrics),
		entryservice.WithLayoutConfig(cfg.Layout.Config),
		entryservice.WithTheme(cfg.Render.Theme()),
		entryservice.WithViewportSize(cfg.Render.Width, cfg.Render.Height),
	}
	if events != nil {
		opts = append(opts, entryservice.WithEvents(events))
	}

	if cfg.Vault.Enabled {
		c.mirror, err = vault.Open(cfg.Vault.Path, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init vault: %w", err)
		}
		opts = append(opts, entryservice.WithMirror(c.mirror))
	}

	c.svc = entryservice.New(db, opts...)

	if c.mirror != nil {
		if err := c.svc.SyncMirror(ctx); err != nil {
			logger.Warn("initial mirror sync failed", slog.String("error", err.Error()))
		}
	}
	return c, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("vault_enabled", cfg.Vault.Enabled),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.App.GraphThrottle)
	defer broker.Close()

	c, err := open(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.App.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))
	r.Use(c.metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", c.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Import external edits of mirrored files.
	if c.mirror != nil && cfg.Vault.Watch {
		g.Go(func() error {
			if err := vault.Watch(gCtx, c.mirror, c.svc, logger); err != nil {
				logger.Error("vault watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Export renders the relationship map to path once and exits. It reports
// whether a file was written.
func Export(ctx context.Context, cfg *Config, req entryservice.MapRequest, path string) (bool, error) {
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	c, err := open(ctx, cfg, logger, nil)
	if err != nil {
		return false, err
	}
	defer c.Close()

	ok, err := c.svc.ExportMap(ctx, req, path)
	if err != nil {
		return false, fmt.Errorf("export map: %w", err)
	}
	if !ok {
		logger.Info("nothing to export", slog.String("path", path))
		return false, nil
	}
	logger.Info("map exported", slog.String("path", path))
	return true, nil
}

// ServeMCP runs the MCP server on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func ServeMCP(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	c, err := open(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	return mcpserver.New(c.svc).ServeStdio()
}
