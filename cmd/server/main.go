package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"coursehub-backend/internal/config"
	"coursehub-backend/internal/database"
	"coursehub-backend/internal/events"
	"coursehub-backend/internal/handlers"
	"coursehub-backend/internal/logging"
	"coursehub-backend/internal/middleware"
	"coursehub-backend/internal/repository"
	"coursehub-backend/internal/router"
	"coursehub-backend/internal/services"
	"coursehub-backend/internal/validate"
	"coursehub-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()
	logger.Info("starting coursehub backend", zap.String("env", cfg.Env))

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	// ──── Step 3: Run Database Migrations ────
	if err := database.RunMigrations(pool, cfg.MigrationsDir, logger); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	// ──── Step 4: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()

	// ──── Step 5: Domain Events (optional) ────
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		p, nc, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats unavailable, domain events disabled", zap.Error(err))
		} else {
			publisher = p
			defer nc.Drain()
		}
	}

	// ──── Initialize Repositories ────
	lessonRepo := repository.NewLessonRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	validator := validate.New()
	courseLocker := services.NewRedisCourseLocker(redisClients.Cmd, cfg.CourseLockTTL, logger.Named("lessons"))
	lessonService := services.NewLessonService(lessonRepo, courseLocker, publisher, logger.Named("lessons"))
	tracker := services.NewProgressTracker(progressRepo, services.ProgressTrackerOptions{
		DebounceWindow: cfg.ProgressDebounce,
		Policy:         services.NewCompletionPolicy(cfg.CompletionThreshold),
		Notifier:       services.NewRedisProgressNotifier(redisClients.Cmd, logger.Named("notifier")),
		Events:         publisher,
		Logger:         logger.Named("progress"),
	})

	// ──── Step 6: Schedule Progress Cache Pruning ────
	janitor := cron.New()
	if _, err := janitor.AddFunc(cfg.ProgressCachePruneSpec, func() {
		if n := tracker.PruneCache(cfg.ProgressCacheTTL); n > 0 {
			logger.Debug("progress cache pruned", zap.Int("removed", n))
		}
	}); err != nil {
		logger.Fatal("invalid progress cache prune schedule", zap.String("spec", cfg.ProgressCachePruneSpec), zap.Error(err))
	}
	janitor.Start()

	// ──── Initialize Handlers ────
	lessonHandler := handlers.NewLessonHandler(lessonService, logger)
	progressHandler := handlers.NewProgressHandler(tracker, validator, logger)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, tracker, validator, logger.Named("ws"))

	// ──── Step 8: Start HTTP Server ────
	progressLimiter := middleware.NewRateLimiter(cfg.ProgressRateLimitPerMin, time.Minute)
	r := router.New(router.Options{
		JWTAuth:         jwtAuth,
		LessonHandler:   lessonHandler,
		ProgressHandler: progressHandler,
		WebSocket:       wsHub.HandleWebSocket,
		ProgressLimiter: progressLimiter,
		FrontendURL:     cfg.FrontendURL,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		wsHub.Close()
		progressLimiter.Stop()
		<-janitor.Stop().Done()
		// Pending debounced progress is written before the pools close.
		if err := tracker.Shutdown(ctx); err != nil {
			logger.Warn("progress flush incomplete", zap.Error(err))
		}
	}()

	logger.Info("coursehub backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
	<-done
}
