package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/havenstead/rentledger/internal/app"
	"github.com/havenstead/rentledger/internal/leasing"
	"github.com/havenstead/rentledger/internal/ledger"
	"github.com/havenstead/rentledger/internal/lifecycle"
	lifecyclehttp "github.com/havenstead/rentledger/internal/lifecycle/http"
	"github.com/havenstead/rentledger/internal/observability"
	"github.com/havenstead/rentledger/internal/platform/cache"
	"github.com/havenstead/rentledger/internal/platform/db"
	"github.com/havenstead/rentledger/internal/shared"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, balance cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	leasingRepo := leasing.NewRepository(pool)
	leasingService := leasing.NewService(leasingRepo, leasing.Defaults{
		GraceDays:     cfg.DefaultGraceDays,
		LateFeeAmount: cfg.DefaultLateFeeAmount,
	}, metrics)

	balanceCache := ledger.NewBalanceCache(redisClient, cfg.BalanceCacheTTL)
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, leasingService, balanceCache, metrics)

	facade := lifecycle.New(leasingService, ledgerService)
	idempotency := shared.NewIdempotencyStore(pool)
	handler := lifecyclehttp.NewHandler(logger, facade, idempotency)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LifecycleHandler: handler,
		Pool:             pool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
