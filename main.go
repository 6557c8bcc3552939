package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/api"
	"github.com/yashasviy/banco-solar-api/bank"
	"github.com/yashasviy/banco-solar-api/config"
	"github.com/yashasviy/banco-solar-api/db"
	"github.com/yashasviy/banco-solar-api/logging"
	"github.com/yashasviy/banco-solar-api/middleware"
)

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !envLoaded {
		logger.Info("no .env file found, using process environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Postgres
	pool, err := db.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Initialize(ctx, pool); err != nil {
		return err
	}
	logger.Info("postgres connected",
		zap.Int("max_open_conns", cfg.DB.MaxOpenConns),
		zap.Duration("conn_max_idle_time", cfg.DB.ConnMaxIdleTime),
	)

	// 2. Redis, optional: without it requests are not rate limited
	var limiter *middleware.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed, limiter will allow requests until it recovers", zap.Error(err))
		} else {
			logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
		limiter = middleware.NewRateLimiter(rdb, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger)
	}

	// 3. Start Server
	router := api.NewRouter(api.Deps{
		Accounts:    bank.NewAccountStore(pool, logger),
		Transfers:   bank.NewTransferEngine(pool, logger),
		DB:          pool,
		RateLimiter: limiter,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
