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

	"github.com/redmaple/streamsync/internal/api"
	"github.com/redmaple/streamsync/internal/article"
	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/feed"
	"github.com/redmaple/streamsync/internal/fetch"
	"github.com/redmaple/streamsync/internal/hotcfg"
	"github.com/redmaple/streamsync/internal/importer"
	"github.com/redmaple/streamsync/internal/mcpserver"
	"github.com/redmaple/streamsync/internal/sched"
	"github.com/redmaple/streamsync/internal/staging"
	pkgconfig "github.com/redmaple/streamsync/pkg/config"
)

// pipeline bundles the wired ingestion components.
type pipeline struct {
	coordinator *importer.Coordinator
	queue       feed.Queue
	stage       *staging.Store
	records     *content.DB
	cfgStore    *hotcfg.Store[Config]
}

// buildPipeline constructs every pipeline component from the configuration.
// The returned pipeline owns the content DB; callers close it via records.
func buildPipeline(cfg *Config, configPath string, logger *slog.Logger) (*pipeline, error) {
	stage, err := staging.NewStore(cfg.Staging.Path)
	if err != nil {
		return nil, fmt.Errorf("init staging: %w", err)
	}

	records, err := content.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init content store: %w", err)
	}

	// Credentials flow through the hot-reload store so a rotation in the
	// config file reaches the next remote call.
	cfgStore := hotcfg.NewStore(configPath, cfg, func(path string) (*Config, error) {
		next := NewDefaultConfig()
		if err := pkgconfig.Load(path, next); err != nil {
			return nil, err
		}
		return next, nil
	})
	creds := func() feed.Credentials {
		f := cfgStore.Snapshot().Feed
		return feed.Credentials{Username: f.Username, Password: f.Password, FeedID: f.FeedID}
	}

	queue := feed.NewClient(cfg.Feed.EndpointURL, creds, cfg.Feed.RequestTimeout.Std(), cfg.Feed.InsecureSkipVerify)
	fetcher := fetch.New(cfg.Feed.RequestTimeout.Std(), cfg.Feed.InsecureSkipVerify)

	parser := article.New(cfg.Staging.AssetBaseURL, records, article.Settings{
		AuthorID:   cfg.Import.AuthorID,
		CategoryID: cfg.Import.CategoryID,
		Status:     content.Status(cfg.Import.Status),
	}, logger)

	coordinator := importer.New(queue, fetcher, stage, parser, records, cfg.Feed.PageSize, logger)

	return &pipeline{
		coordinator: coordinator,
		queue:       queue,
		stage:       stage,
		records:     records,
		cfgStore:    cfgStore,
	}, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP server (and, when enabled, the interval scheduler) with
// the given options and blocks until shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("staging_path", cfg.Staging.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("feed_endpoint", cfg.Feed.EndpointURL),
		slog.Bool("schedule_enabled", cfg.Schedule.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	p, err := buildPipeline(cfg, app.configPath, logger)
	if err != nil {
		return err
	}
	defer p.records.Close()

	apiRouter := api.NewRouter(p.coordinator.RunCycle, p.queue, p.stage, p.records,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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

	// Served assets at the public base rewritten document links point at.
	assetFS := http.StripPrefix("/assets/", http.FileServer(http.Dir(p.stage.AssetsRoot())))
	r.Get("/assets/*", assetFS.ServeHTTP)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file for hot credential reloads.
	if app.configPath != "" {
		g.Go(func() error {
			return p.cfgStore.Watch(gCtx, logger)
		})
	}

	// Interval scheduler for unattended imports.
	if cfg.Schedule.Enabled {
		scheduler := sched.New(p.coordinator, cfg.Schedule.Interval.Std(), cfg.Feed.DeleteAfterDownload, logger)
		g.Go(func() error {
			return scheduler.Run(gCtx)
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

// RunImportOnce executes a single import cycle outside the server, for the
// import subcommand. The outcome is returned for the CLI to render.
func RunImportOnce(ctx context.Context, deleteAfterDownload bool, opts ...Option) (*importer.Outcome, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := newLogger(app.config)

	p, err := buildPipeline(app.config, app.configPath, logger)
	if err != nil {
		return nil, err
	}
	defer p.records.Close()

	return p.coordinator.RunCycle(ctx, deleteAfterDownload)
}

// RunMCP serves the pipeline tools over MCP stdio until the client hangs up.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	// MCP owns stdout for the protocol; keep logs on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))

	p, err := buildPipeline(app.config, app.configPath, logger)
	if err != nil {
		return err
	}
	defer p.records.Close()

	srv := mcpserver.New(p.coordinator.RunCycle, p.queue, p.stage, p.records)
	return srv.ServeStdio()
}
