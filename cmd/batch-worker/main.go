package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"school-admin-core/internal/batch"
	"school-admin-core/internal/config"
	"school-admin-core/internal/db"
	"school-admin-core/internal/logger"
	"school-admin-core/internal/queue"
	"school-admin-core/internal/results"
	"school-admin-core/internal/schoolapi"
	"school-admin-core/internal/storage"
	"school-admin-core/internal/worker"

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

	log.Info().Str("version", cfg.App.Version).Msg("Starting batch worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize S3 storage
	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	client := schoolapi.NewClient(cfg)
	resultService := results.NewService(client, validator.New(), log)
	coordinator := batch.NewCoordinator(client, resultService, cfg.Workers.Batch.Concurrency, log)

	batchWorker := worker.NewBatchWorker(cfg, repo, s3Storage, coordinator, redisClient)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := batchWorker.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("Batch worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down batch worker...")

	// Stop consuming before the pool closes so no job is submitted to it late.
	cancel()
	<-consumerDone
	batchWorker.Stop()

	log.Info().Msg("Batch worker exited")
}
