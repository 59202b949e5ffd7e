package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"nvrgate/internal/app"
	"nvrgate/internal/cache"
	"nvrgate/internal/config"
	"nvrgate/internal/jobs"
	"nvrgate/internal/log"
	"nvrgate/internal/queue"
	"nvrgate/internal/storage"
	"nvrgate/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open account store")
	}
	defer stores.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	deps := tasks.Deps{
		Users:    stores.Users,
		Sessions: stores.Sessions,
		Cache:    cache.NewSessionCache(client, cfg.Security.SessionCacheTTL),
		Usage:    cache.NewUsageTracker(client),
	}
	if cfg.Storage.Endpoint != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBuckets(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure buckets failed")
		}
		deps.Snapshots = objectStore
	}

	processor := tasks.NewProcessor(deps, logger)
	consumer := queue.NewConsumer(client, queue.ConsumerConfig{
		Stream:        cfg.Worker.Stream,
		Group:         cfg.Worker.Group,
		Consumer:      cfg.Worker.Consumer,
		ClaimInterval: cfg.Worker.ClaimInterval,
		MinIdle:       cfg.Worker.MinIdle,
	}, logger, processor)

	scheduler := jobs.NewScheduler(queue.NewProducer(client, cfg.Worker.Stream), cfg.Jobs, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start failed")
	}

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}

	logger.Info().Msg("shutdown signal received")
	<-scheduler.Stop().Done()
	logger.Info().Msg("worker exited cleanly")
}

