// Package main is the entrypoint for the mediaqueue API server.
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

	"github.com/kiranshivaraju/mediaqueue/internal/api"
	"github.com/kiranshivaraju/mediaqueue/internal/api/handler"
	mw "github.com/kiranshivaraju/mediaqueue/internal/api/middleware"
	"github.com/kiranshivaraju/mediaqueue/internal/api/response"
	"github.com/kiranshivaraju/mediaqueue/internal/cache"
	"github.com/kiranshivaraju/mediaqueue/internal/config"
	"github.com/kiranshivaraju/mediaqueue/internal/executor"
	"github.com/kiranshivaraju/mediaqueue/internal/queue"
	"github.com/kiranshivaraju/mediaqueue/internal/store"
	"github.com/kiranshivaraju/mediaqueue/internal/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "executor_provider", cfg.Executor.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	tp, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown", "error", err)
		}
	}()

	// 3. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 4. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 5. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 6. Create task executor
	exec, err := executor.NewExecutor(cfg.Executor)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	slog.Info("task executor initialized", "provider", exec.Name())

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	// 7. Queue: registry, per-user workers, batch service
	pgStore := store.NewPostgresStore(pool)
	registry := queue.NewRegistry()
	processor := queue.NewProcessor(exec, pgStore, redisCache, cfg.Queue.TaskTimeout, slog.Default())
	supervisor := queue.NewSupervisor(registry, processor, cfg.Queue, slog.Default())
	// Workers stop once the HTTP server has drained, before the store and
	// cache close. Queued items live only in memory and are dropped.
	defer supervisor.Stop()
	batches := queue.NewService(pgStore, registry, supervisor, redisCache, slog.Default())

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),

		HealthHandler:  healthHandler(pgStore, redisCache),
		MetricsHandler: promhttp.Handler(),

		EnqueueHandler: handler.NewEnqueueHandler(batches),
		StatusHandler:  handler.NewStatusHandler(batches),

		ListFilesHandler:    handler.NewListFilesHandler(pgStore),
		UploadFileHandler:   handler.NewUploadHandler(pgStore, cfg.Storage),
		DeleteFileHandler:   handler.NewDeleteFileHandler(pgStore, redisCache),
		FileMetadataHandler: handler.NewFileMetadataHandler(pgStore, redisCache),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
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

	slog.Info("server stopped gracefully", "users_with_queues", len(registry.Users()))
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
