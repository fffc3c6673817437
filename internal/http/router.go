// Package http exposes the retrieval pipeline as a REST API.
package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/oceancolor/internal/usecase"
)

// SetupRouter creates and configures the Gin router. An empty allowedOrigins
// allows every origin.
func SetupRouter(pipeline *usecase.Pipeline, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(pipeline)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/products", handler.GetProducts)
	v1.POST("/validate", handler.ValidateSettings)
	v1.POST("/urls", handler.ListURLs)

	subsets := v1.Group("/subsets")
	subsets.POST("", handler.CreateSubset)
	subsets.GET("/:name", handler.GetSubset)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
