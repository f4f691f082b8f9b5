// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-activation/internal/config"
	pg "subscription-activation/internal/infra/db/postgres"
	"subscription-activation/internal/infra/logging"
	"subscription-activation/internal/infra/metrics"
	red "subscription-activation/internal/infra/redis"
	"subscription-activation/internal/infra/web"
	"subscription-activation/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	codeRepo := pg.NewActivationCodeRepo(pool)
	batchRepo := pg.NewCodeBatchRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	genUC := usecase.NewGenerationUseCase(codeRepo, batchRepo, txManager, usecase.GenerationConfig{
		MaxBatchSize:       cfg.Codes.MaxBatchSize,
		AttemptsPerCode:    cfg.Codes.AttemptsPerCode,
		CollisionThreshold: cfg.Codes.CollisionThreshold,
	}, logger)
	redUC := usecase.NewRedemptionUseCase(codeRepo, batchRepo, subRepo, txManager, locker, logger)

	// ---- Metrics ----
	metrics.MustRegister()
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if active, lapsed, err := subRepo.CountByStatus(ctx); err == nil {
					metrics.SetSubscriptionsTotal(active, lapsed)
				}
			}
		}
	}()

	// ---- HTTP ----
	var auth *web.AuthManager
	if cfg.Web.JWTSecret != "" {
		auth = web.NewAuthManager(cfg.Web.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	}
	server := web.NewServer(genUC, redUC, cfg.Web.APIKey, auth, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Web.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
