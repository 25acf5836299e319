// Package main is the entrypoint for the docingest API server.
package main

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

	"github.com/kiranshivaraju/docingest/internal/api"
	"github.com/kiranshivaraju/docingest/internal/api/handler"
	mw "github.com/kiranshivaraju/docingest/internal/api/middleware"
	"github.com/kiranshivaraju/docingest/internal/cache"
	"github.com/kiranshivaraju/docingest/internal/config"
	"github.com/kiranshivaraju/docingest/internal/ingestion"
	"github.com/kiranshivaraju/docingest/internal/llm"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "embed_model", cfg.Gemini.EmbedModel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Object storage and model provider
	objects, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}

	gemini, err := llm.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		return fmt.Errorf("create model provider: %w", err)
	}
	defer gemini.Close()
	slog.Info("model provider initialized", "provider", gemini.Name())

	// 6. Store, first API key and ingestion service
	pgStore := store.NewPostgresStore(pool)

	if err := bootstrapAPIKey(ctx, pgStore); err != nil {
		return fmt.Errorf("bootstrap api key: %w", err)
	}

	svc := ingestion.NewService(pgStore, redisCache, objects, gemini, gemini, ingestion.Options{
		ChunkTargetTokens:  cfg.Ingest.ChunkTargetTokens,
		ChunkOverlapTokens: cfg.Ingest.ChunkOverlapTokens,
		EmbedBatchSize:     cfg.Ingest.EmbedBatchSize,
		LockTTL:            cfg.Ingest.ProcessLockTTL,
	})

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute)

	deps := api.Dependencies{
		Auth:        auth,
		RateLimit:   rateLimit,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,

		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": pgStore,
			"cache":    redisCache,
		}),

		CreateUpload: handler.NewCreateUploadHandler(svc),
		DeleteUpload: handler.NewDeleteUploadHandler(svc),

		IngestText:   handler.NewIngestTextHandler(svc),
		IngestStart:  handler.NewIngestStartHandler(svc),
		IngestBatch:  handler.NewIngestBatchHandler(svc),
		IngestFinish: handler.NewIngestFinishHandler(svc),
		IngestDocx:   handler.NewIngestDocxHandler(svc),
		OCRBatch:     handler.NewOCRBatchHandler(svc),

		ProcessDocument: handler.NewProcessDocumentHandler(svc),
		ProcessJob:      handler.NewProcessJobHandler(svc),

		ListDocuments: handler.NewListDocumentsHandler(svc),
		GetDocument:   handler.NewGetDocumentHandler(svc),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Finish and OCR calls wait on the model provider.
		WriteTimeout: cfg.Gemini.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
