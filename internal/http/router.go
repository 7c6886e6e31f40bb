package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrolink/geo-discovery-service/internal/http/handlers"
	"github.com/agrolink/geo-discovery-service/internal/platform/logger"
	"github.com/agrolink/geo-discovery-service/internal/platform/middleware"
)

func NewRouter(log *logger.Logger, level logger.Level, nearby *handlers.Nearby, locations *handlers.Locations, sellers *handlers.Sellers, system *handlers.System) *gin.Engine {
	if level == logger.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Order matters
	r.Use(middleware.RequestID())
	r.Use(middleware.GinStructuredLogger(log, level))
	r.Use(middleware.Error(log))
	r.Use(middleware.Recovery(log))

	setupRoutes(r, nearby, locations, sellers, system)
	return r
}

func setupRoutes(r *gin.Engine, nearby *handlers.Nearby, locations *handlers.Locations, sellers *handlers.Sellers, system *handlers.System) {
	r.GET("/healthz", system.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/nearby-products", nearby.GetProducts)
		v1.GET("/nearby-sellers", nearby.GetSellers)
		v1.POST("/nearby-sellers", nearby.PostSellers)

		v1.GET("/locations", locations.Get)
		v1.POST("/locations", locations.Post)

		v1.GET("/sellers/:id", sellers.GetByID)
	}
}
