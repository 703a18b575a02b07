package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripdesk/internal/domain"
	"tripdesk/internal/handler"
	"tripdesk/internal/middleware"
	"tripdesk/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler      *handler.TripHandler
	BulkHandler      *handler.BulkHandler
	ReconcileHandler *handler.ReconcileHandler
	Idempotency      redis.ResponseStore
	Gatherer         prometheus.Gatherer
	NewRelicApp      *newrelic.Application
	JWTSecret        []byte
	CORSOrigins      []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins...))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes. Idempotency keys are scoped by actor, so it runs after auth.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTSecret))
	v1.Use(middleware.NewRelicActor())
	v1.Use(middleware.IdempotencyMiddleware(deps.Idempotency))
	{
		employee := middleware.RequireRole(domain.RoleEmployee)
		manager := middleware.RequireRole(domain.RoleManager)

		trips := v1.Group("/trips")
		{
			trips.POST("", employee, deps.TripHandler.CreateTrip)
			trips.GET("", employee, deps.TripHandler.ListTrips)
			trips.GET("/export", manager, deps.TripHandler.ExportTrips)
			trips.GET("/:id", employee, deps.TripHandler.GetTrip)
			trips.PATCH("/:id", employee, deps.TripHandler.UpdateTrip)
			trips.POST("/:id/transition", employee, deps.TripHandler.TransitionTrip)
			trips.POST("/:id/settlement", employee, deps.TripHandler.SetSettlement)
		}

		bulk := v1.Group("/trips/bulk", manager)
		{
			bulk.POST("/transition", deps.BulkHandler.BulkTransition)
			bulk.POST("/settlement", deps.BulkHandler.BulkSettlement)
		}

		v1.POST("/reconcile", manager, deps.ReconcileHandler.Reconcile)
	}

	return router
}
