package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"freight/internal/handler"
	"freight/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler       *handler.TripHandler
	CheckpointHandler *handler.CheckpointHandler
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		trips := v1.Group("/trips")
		{
			trips.GET("/stream", deps.TripHandler.Stream)
			trips.GET("/nearby", deps.TripHandler.Nearby)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.GET("/:id/events", deps.TripHandler.ListEvents)
			trips.POST("/:id/checkpoints", deps.CheckpointHandler.LogCheckpoint)
			trips.POST("/:id/costing/recalculate", deps.TripHandler.RecalculateAddOns)
			trips.POST("/:id/totals/recalculate", deps.TripHandler.RecalculateTotals)
		}
	}

	return router
}
