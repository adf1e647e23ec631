package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"school-admin-core/internal/api"
	"school-admin-core/internal/batch"
	"school-admin-core/internal/config"
	"school-admin-core/internal/db"
	"school-admin-core/internal/logger"
	"school-admin-core/internal/progression"
	"school-admin-core/internal/queue"
	"school-admin-core/internal/results"
	"school-admin-core/internal/schoolapi"
	"school-admin-core/internal/storage"
	"school-admin-core/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.EnsureSchema(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}
	repo := db.NewRepository(database)

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	producer := queue.NewProducer(redisClient, cfg)

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	// School API and the services built on it
	client := schoolapi.NewClient(cfg)
	manager := progression.NewManager(client, repo, log)
	resultService := results.NewService(client, validator.New(), log)
	coordinator := batch.NewCoordinator(client, resultService, cfg.Workers.Batch.Concurrency, log)

	if _, err := manager.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Current session unavailable at startup")
	}

	refresher := worker.NewRefreshWorker(cfg.Workers.Refresh, manager)
	go func() {
		if err := refresher.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Session refresh worker failed")
		}
	}()

	handler := api.NewHandler(cfg, api.Services{
		Sessions: manager,
		Results:  resultService,
		Batches:  coordinator,
		Runs:     repo,
		Storage:  s3Storage,
		Queue:    producer,
	})

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.CORSMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.RecoveryMiddleware())

	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
