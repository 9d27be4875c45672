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

	"github.com/marwick/shoebox/internal/analyze"
	"github.com/marwick/shoebox/internal/api"
	"github.com/marwick/shoebox/internal/capture"
	"github.com/marwick/shoebox/internal/index"
	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/mcpserver"
	"github.com/marwick/shoebox/internal/sse"
	"github.com/marwick/shoebox/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the capture store.
	st, err := store.New(cfg.Store.Path, analyze.New())
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, st, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// Clipboard: explicit override, else the system clipboard when its
	// tooling is present.
	clip := app.clipboard
	if clip == nil {
		sys := capture.SystemClipboard{}
		if sys.Available() {
			clip = sys
		} else {
			logger.Warn("system clipboard unavailable, clipboard capture disabled")
		}
	}

	if app.mcpMode {
		svc := itemservice.New(st, db, clip, nil)
		logger.Info("Serving MCP over stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Item service publishes every mutation to the SSE broker.
	svc := itemservice.New(st, db, clip, broker.PublishItemEvent)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Store watcher keeps the index current for out-of-band file changes.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, st, logger, broker.PublishItemEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Clipboard poller.
	if cfg.Capture.Clipboard.Enabled && clip != nil {
		poller := capture.NewClipboardPoller(clip, svc, cfg.Capture.Clipboard.PollInterval.Std(), logger)
		g.Go(func() error { return poller.Run(gCtx) })
	}

	// Selection watcher, when a source was provided.
	if cfg.Capture.Selection.Enabled && app.selection != nil {
		watcher := capture.NewSelectionWatcher(app.selection, svc,
			cfg.Capture.Selection.PollInterval.Std(),
			cfg.Capture.Selection.Debounce.Std(),
			cfg.Capture.Selection.MinLength, logger)
		g.Go(func() error { return watcher.Run(gCtx) })
	}

	// Inbox ingestor.
	if cfg.Capture.Inbox.Enabled {
		inbox, inboxErr := capture.NewInboxIngestor(cfg.Capture.Inbox.Path, svc, logger)
		if inboxErr != nil {
			return fmt.Errorf("init inbox: %w", inboxErr)
		}
		g.Go(func() error { return inbox.Run(gCtx) })
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
