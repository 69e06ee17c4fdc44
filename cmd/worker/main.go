package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/boxpool"
	"github.com/oj-platform/judge-executor/internal/callback"
	"github.com/oj-platform/judge-executor/internal/config"
	"github.com/oj-platform/judge-executor/internal/idempotency"
	"github.com/oj-platform/judge-executor/internal/queue/rabbitmq"
	"github.com/oj-platform/judge-executor/internal/repository/postgres"
	"github.com/oj-platform/judge-executor/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("starting judge-executor worker")

	cfg, err := config.Load(configPath())
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	logger.Info("connected to postgres")

	redisOpts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid redis url", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis")

	repo := postgres.New(dbPool)
	locker := idempotency.NewRedisLocker(redisClient)
	callbacks := callback.New(logger)
	allocator := boxpool.New(cfg.Sandbox.BoxIDMax)

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	logger.Info("connected to rabbitmq")

	pipeline := worker.NewPipeline(allocator, cfg.Sandbox.JailerPath, repo, locker, callbacks, logger)
	pool := worker.NewPool(cfg.NumWorkers, consumer, pipeline, logger)
	pool.Start(ctx)

	metricsSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer pingCancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	metricsSrv.Handler = mux

	go func() {
		logger.Info("metrics/health server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")

	if err := consumer.Close(); err != nil {
		logger.Error("error closing rabbitmq consumer", zap.Error(err))
	}

	cancel()
	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}

	logger.Info("worker stopped")
}

func configPath() string {
	if p := os.Getenv("WORKER_CONFIG_PATH"); p != "" {
		return p
	}
	if p := os.Getenv("EXECUTOR_CONFIG_PATH"); p != "" {
		return p
	}
	return "config.toml"
}
