// Package main is the entry point for the coinchat backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"coinchat/internal/config"
	"coinchat/internal/pkg/db"
	"coinchat/internal/pkg/lock"
	"coinchat/internal/progression"
	"coinchat/internal/repository"
	"coinchat/internal/server"
	"coinchat/internal/service"
	"coinchat/internal/shop"
)

func main() {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	if cfg.Auth.TokenSecret == "" {
		log.Fatal().Msg("auth.token_secret is required (AUTH_TOKEN_SECRET)")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	if err := db.Seed(ctx, dbPool.Pool, shop.DefaultTitles(), progression.DefaultTasks()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed catalog")
	}

	health := map[string]server.HealthCheck{"postgres": dbPool.HealthCheck}

	// Per-user serialization: Redis when configured so that several
	// instances share one lock space, otherwise in-process.
	var locker progression.Locker = lock.NewUserLock()
	if cfg.Redis.Enabled() {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer client.Close()

		locker = lock.NewRedisLock(client, cfg.Redis.LockTTL)
		health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	txm := repository.NewTxManager(dbPool.Pool)
	queries := repository.NewQueries(dbPool.Pool)
	engine := progression.NewEngine(txm, locker, cfg.Progress.LockTimeout)
	tokens := service.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	accountService := service.NewAccountService(txm, queries, tokens, cfg.Auth.BcryptCost)
	chatService := service.NewChatService(txm, queries, engine,
		cfg.Chat.MaxMessageLength, cfg.Chat.HistoryLimit, cfg.Chat.MaxHistoryLimit)
	shopService := service.NewShopService(txm, queries, engine)
	activityService := service.NewActivityService(queries, engine)
	adminService := service.NewAdminService(cfg, txm, queries, engine)

	if err := adminService.SyncAdmins(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to sync admin accounts")
	}

	srv, err := server.New(&server.Dependencies{
		Config:     cfg,
		Accounts:   accountService,
		Activities: activityService,
		Shop:       shopService,
		Chat:       chatService,
		Admin:      adminService,
		Tokens:     tokens,
		Health:     health,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		return srv.Stop(context.Background())
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				dbPool.LogStats()
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped gracefully")
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
