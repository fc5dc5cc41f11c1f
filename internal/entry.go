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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/editor"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/keywords"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/settings"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
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
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	// Mutable settings from config.ini; a stored project_path wins over the
	// YAML config so the last used project is picked up again.
	sett, err := settings.Load(cfg.Settings.Path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	projectPath := cfg.Project.Path
	if sett.ProjectPath != "" {
		projectPath = sett.ProjectPath
	}
	if app.projectOverride != "" {
		projectPath = app.projectOverride
	}
	if projectPath == "" {
		return fmt.Errorf("no project path configured (set project.path or config.ini project_path)")
	}
	sett.ProjectPath = projectPath

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_path", projectPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the posts directory exists.
	if err := os.MkdirAll(filepath.Join(projectPath, cfg.Project.PostsDir), 0o755); err != nil {
		return fmt.Errorf("create posts dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(projectPath)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, store, cfg.Project.PostsDir, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := postservice.NewService(store, db, cfg.Project.PostsDir)

	// Keyword API credentials; the config.ini api section overrides the
	// YAML config so keys stay out of checked-in files.
	apiKey, baseURL, model := cfg.Keywords.APIKey, cfg.Keywords.BaseURL, cfg.Keywords.Model
	if sett.APIKey != "" {
		apiKey, baseURL, model = sett.APIKey, sett.BaseURL, sett.Model
	}
	suggester := keywords.NewSuggester(apiKey, baseURL, model)

	loc := cfg.Site.Location()

	if app.mcp {
		defer saveSettings(sett, logger)
		srv := mcpserver.New(store, db, svc, suggester, loc)
		logger.Info("Starting MCP stdio server")
		return srv.ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	launcher := editor.NewLauncher(cfg.Editor.Command)

	// Build API handlers and router.
	h := api.NewHandler(svc, store, suggester, launcher,
		filepath.Join(projectPath, filepath.FromSlash(cfg.Project.AuthorsFile)),
		projectPath, loc)
	ah := api.NewAssetHandler(projectPath)
	apiRouter := api.NewRouter(h, ah, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Serve uploaded assets (unauthenticated, like the built site would).
	r.Get("/assets/img/{filename}", ah.ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback. It also keeps last_post current:
	// the most recently created post survives into config.ini.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, projectPath, cfg.Project.PostsDir, logger, func(kind, path string) {
			if kind == "created" {
				sett.LastPost = path
			}
			broker.PublishPostEvent(kind, path)
		})
	})

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

	runErr := g.Wait()
	saveSettings(sett, logger)
	if runErr != nil {
		logger.Error("Application error", slog.String("error", runErr.Error()))
		return runErr
	}

	logger.Info("Server stopped successfully")
	return nil
}

func saveSettings(sett *settings.Settings, logger *slog.Logger) {
	if err := sett.Save(); err != nil {
		logger.Error("save settings failed", slog.String("error", err.Error()))
	}
}
