package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nvrgate/internal/app"
	"nvrgate/internal/cache"
	"nvrgate/internal/config"
	"nvrgate/internal/handlers"
	"nvrgate/internal/log"
	"nvrgate/internal/models"
	"nvrgate/internal/queue"
	"nvrgate/internal/server"
	"nvrgate/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open account store")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	anonymous, err := models.ParsePermissionNames(cfg.Security.UnauthenticatedPermissions)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid security.unauthenticatedpermissions")
	}
	loginFlags, err := models.ParseSessionFlags(cfg.Security.LoginSessionFlags)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid security.loginsessionflags")
	}

	resolver := service.NewCallerResolver(
		stores.Users,
		stores.Sessions,
		cache.NewSessionCache(redisClient, cfg.Security.SessionCacheTTL),
		cache.NewUsageTracker(redisClient),
		service.ResolverConfig{
			CSRFSecret:   cfg.Security.CSRFSecret,
			BearerSecret: cfg.Security.BearerSecret,
			Anonymous:    anonymous,
		},
		logger,
	)
	issuer := service.NewSessionIssuer(stores.Users, stores.Sessions, logger)
	auth := service.NewAuthService(stores.Users, issuer, service.AuthConfig{
		Flags:        loginFlags,
		BearerSecret: cfg.Security.BearerSecret,
		BearerTTL:    cfg.Security.BearerTTL,
	}, logger)
	users := service.NewUserService(stores.Users, queue.NewProducer(redisClient, cfg.Worker.Stream), logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Deps{
		Auth:     auth,
		Users:    users,
		Resolver: resolver,
		Health: map[string]handlers.HealthCheck{
			"store": stores.Ping,
			"cache": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, stores, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, stores app.Stores, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	stores.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
