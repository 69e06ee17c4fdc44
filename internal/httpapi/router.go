package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/httpapi/middleware"
)

// RouterDeps holds every dependency NewRouter needs to wire the intake
// surface.
type RouterDeps struct {
	Service         *SubmissionService
	Logger          *zap.Logger
	RateLimitPerMin int
	DBPool          *pgxpool.Pool
	AmqpURI         string
	Redis           *redis.Client
}

// NewRouter builds the gin engine serving the submission intake API.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.BodySizeLimit(1 << 20))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := NewHealthHandler(deps.Logger, deps.DBPool, deps.AmqpURI, deps.Redis)
	router.GET("/health", health.Health)

	langHandler := NewLanguageHandler(deps.Service)
	router.GET("/languages", langHandler.List)

	limited := router.Group("")
	limited.Use(middleware.RateLimiter(deps.Redis, deps.RateLimitPerMin))
	{
		subHandler := NewSubmissionHandler(deps.Service, deps.Logger)
		limited.POST("/submissions", subHandler.Submit)
		limited.GET("/submissions/:id", subHandler.GetByID)
	}

	wsHandler := NewWebSocketHandler(deps.Service, deps.Logger)
	router.GET("/submissions/:id/stream", wsHandler.Stream)

	return router
}
