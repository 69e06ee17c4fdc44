package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/config"
	"github.com/oj-platform/judge-executor/internal/httpapi"
	"github.com/oj-platform/judge-executor/internal/queue/rabbitmq"
	"github.com/oj-platform/judge-executor/internal/repository/postgres"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("starting judge-executor api")

	cfg, err := config.Load(configPath())
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()

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
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer publisher.Close()
	logger.Info("connected to rabbitmq")

	repo := postgres.New(dbPool)
	langs := config.NewLanguageRegistry(cfg)
	svc := httpapi.NewSubmissionService(repo, publisher, langs, logger)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Service:         svc,
		Logger:          logger,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
		DBPool:          dbPool,
		AmqpURI:         cfg.RabbitMQURL,
		Redis:           redisClient,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("api server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server forced shutdown", zap.Error(err))
	}

	logger.Info("api server stopped")
}

func configPath() string {
	if p := os.Getenv("API_CONFIG_PATH"); p != "" {
		return p
	}
	if p := os.Getenv("EXECUTOR_CONFIG_PATH"); p != "" {
		return p
	}
	return "config.toml"
}
