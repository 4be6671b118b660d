// FastAI Rewrite - feedback-conditioned rewrite server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/hhoang/fastai-rewrite/internal/api"
	"github.com/hhoang/fastai-rewrite/internal/chat"
	"github.com/hhoang/fastai-rewrite/internal/config"
	"github.com/hhoang/fastai-rewrite/internal/identity"
	"github.com/hhoang/fastai-rewrite/internal/llm"
	"github.com/hhoang/fastai-rewrite/internal/middleware"
	"github.com/hhoang/fastai-rewrite/internal/rewrite"
	"github.com/hhoang/fastai-rewrite/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, slog.LevelInfo)
	slog.SetDefault(logger)
	defer func() {
		if closeErr := closeLog(); closeErr != nil {
			slog.Error("Failed to close log file", "error", closeErr)
		}
	}()

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	client := llm.NewOpenAI(cfg.OpenAI)
	persister := rewrite.NewPersister(cfg.PersistWorkers)
	svc := rewrite.NewService(repo, client, persister, rewrite.Options{
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	})
	svc.EnableTokenEstimates(cfg.OpenAI.Model)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo)
	adminHandler := api.NewAdminHandler(baseHandler, cfg)
	rewriteHandler := rewrite.NewHandler(svc)
	wsHandler := chat.NewWebSocketHandler(svc, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo))

	// All routes behind the identity middleware.
	baseHandler.RegisterAgentRoutes(r)
	baseHandler.RegisterActivityRoutes(r)
	baseHandler.RegisterMetricsRoutes(r)
	adminHandler.RegisterRoutes(r)
	rewriteHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let detached persistence writes finish before closing the store.
	if err := persister.Close(shutdownCtx); err != nil {
		slog.Warn("Detached persistence did not drain in time", "error", err)
	}

	slog.Info("Server stopped successfully")
}
