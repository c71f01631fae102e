package http

import (
	"log/slog"

	"github.com/balbonits/drm-broker/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter sets up the Gin router.
func SetupRouter(issuer *service.Issuer, validator *service.Validator, broker *service.Broker, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	handlers := NewDRMHandlers(issuer, validator, broker)

	tokens := router.Group("/tokens")
	{
		tokens.POST("/generate", handlers.GenerateToken)
		tokens.POST("/validate", handlers.ValidateToken)
		tokens.POST("/revoke", handlers.RevokeToken)
		tokens.POST("/release", handlers.ReleaseStream)
	}

	router.POST("/license/:provider", handlers.IssueLicense)

	return router
}
