// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/perthro/internal/api"
	"github.com/starford/perthro/internal/investigation"
	"github.com/starford/perthro/internal/logging"
	"github.com/starford/perthro/internal/mcpserver"
	"github.com/starford/perthro/internal/sse"
	"github.com/starford/perthro/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeServe, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// The MCP stdio transport owns stdout.
	logOut := app.logOut
	if logOut == nil {
		logOut = os.Stdout
		if app.mode == ModeMCP {
			logOut = os.Stderr
		}
	}
	logger := logging.Init(cfg.App.LogLevel, cfg.App.LogFormat, logOut)

	logger.Info("Configuration loaded",
		slog.String("mode", app.mode),
		slog.String("base_dir", cfg.Case.BaseDir),
		slog.Int("max_results", cfg.Search.MaxResults),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc := NewService(cfg)

	switch app.mode {
	case ModeServe:
		return serve(ctx, cfg, svc, logger)
	case ModeMCP:
		logger.Info("MCP server starting on stdio", slog.String("version", app.version))
		return mcpserver.New(svc, app.version, logging.New("mcp")).ServeStdio()
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

// NewHTTPHandler builds the top-level chi router: health probes plus the API
// mounted under /api.
func NewHTTPHandler(cfg *Config, svc *investigation.Service, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if info, err := os.Stat(cfg.Case.BaseDir); err != nil || !info.IsDir() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"base dir not found"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes (including SSE) under /api.
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	return r
}

func serve(ctx context.Context, cfg *Config, svc *investigation.Service, logger *slog.Logger) error {
	broker := sse.NewBroker(cfg.Watch.Throttle)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHTTPHandler(cfg, svc, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	// Start case directory watcher with SSE callback.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			w := watch.New(cfg.Case.BaseDir, svc.Extensions(),
				watch.WithDebounce(cfg.Watch.Debounce),
				watch.WithLogger(logging.New("watch")))
			if err := w.Run(watchCtx, watch.PublishTo(broker)); err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
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
		stopWatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
